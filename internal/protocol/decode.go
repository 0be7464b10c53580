package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Decode parses a wire frame into a Message. It fails with ErrMalformedPDU
// when the frame is not a mapping, is missing __version__ or msg_type,
// names an unsupported version, or — for a known type in that version —
// omits a required argument. An unknown msg_type in a supported version
// decodes successfully with Type() == TypeUnknown and every field of the
// original mapping preserved.
func Decode(frame []byte) (*Message, error) {
	var raw map[string]any
	if err := msgpack.Unmarshal(frame, &raw); err != nil {
		return nil, fmt.Errorf("%w: not a mapping: %v", ErrMalformedPDU, err)
	}

	versionRaw, ok := raw["__version__"]
	if !ok {
		return nil, fmt.Errorf("%w: missing __version__", ErrMalformedPDU)
	}
	version, ok := toInt(versionRaw)
	if !ok {
		return nil, fmt.Errorf("%w: __version__ is not an integer", ErrMalformedPDU)
	}
	if version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedPDU, version)
	}

	rawType, ok := raw["msg_type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing or non-string msg_type", ErrMalformedPDU)
	}

	cached := make([]byte, len(frame))
	copy(cached, frame)

	msg := &Message{
		version: version,
		rawType: rawType,
		cache:   map[int][]byte{version: cached},
	}

	switch Type(rawType) {
	case TypeNotify:
		appName, err := requireString(raw, "app_name", rawType)
		if err != nil {
			return nil, err
		}
		summary, err := requireString(raw, "summary", rawType)
		if err != nil {
			return nil, err
		}
		body, err := requireString(raw, "body", rawType)
		if err != nil {
			return nil, err
		}
		args := &NotifyArgs{AppName: appName, Summary: summary, Body: body, Urgency: UrgencyLow}
		if v, ok := raw["urgency"]; ok {
			n, ok := toInt(v)
			if !ok {
				return nil, fmt.Errorf("%w: urgency is not an integer", ErrMalformedPDU)
			}
			args.Urgency = Urgency(n)
		}
		if v, ok := raw["category"]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: category is not a string", ErrMalformedPDU)
			}
			args.Category = &s
		}
		if v, ok := raw["id"]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: id is not a string", ErrMalformedPDU)
			}
			args.ID = &s
		}
		msg.typ = TypeNotify
		msg.notify = args

	case TypeAccepted:
		id, err := requireString(raw, "id", rawType)
		if err != nil {
			return nil, err
		}
		msg.typ = TypeAccepted
		msg.accepted = &AcceptedArgs{ID: id}

	case TypeSubscribe:
		msg.typ = TypeSubscribe
	case TypeSubscribed:
		msg.typ = TypeSubscribed
	case TypeGoodbye:
		msg.typ = TypeGoodbye

	case TypeError:
		reason, err := requireString(raw, "reason", rawType)
		if err != nil {
			return nil, err
		}
		msg.typ = TypeError
		msg.errArgs = &ErrorArgs{Reason: reason}

	default:
		msg.typ = TypeUnknown
		args := make(map[string]any, len(raw))
		for k, v := range raw {
			if k == "__version__" || k == "msg_type" {
				continue
			}
			args[k] = v
		}
		msg.unknownArgs = args
	}

	return msg, nil
}

func requireString(raw map[string]any, key, typeName string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMalformedPDU, requiredArgError{msgType: typeName, arg: key})
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s argument %q is not a string", ErrMalformedPDU, typeName, key)
	}
	return s, nil
}

// toInt normalizes the numeric types msgpack.Unmarshal may produce for an
// integer-valued key into an int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
