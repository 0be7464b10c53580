// Package protocol implements the versioned binary message envelope shared
// by every role in the notification fabric: the tagged-union Message type,
// its per-type argument contracts, and the MessagePack codec that encodes
// and decodes it.
package protocol

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Type identifies the kind of a known Message. Unknown wire types decode
// successfully into TypeUnknown, with the original string preserved in
// RawType, so that forward-compatible peers can pass them through.
type Type string

// The known message types for protocol version 0.
const (
	TypeNotify     Type = "notify"
	TypeAccepted   Type = "accepted"
	TypeSubscribe  Type = "subscribe"
	TypeSubscribed Type = "subscribed"
	TypeGoodbye    Type = "goodbye"
	TypeError      Type = "error"

	// TypeUnknown marks a Message whose wire msg_type is not one of the
	// above. RawType holds the original string.
	TypeUnknown Type = ""
)

// CurrentVersion is the only protocol version this codec natively
// understands for both decode and encode in this release.
const CurrentVersion = 0

// NotifyArgs holds the per-type arguments of a notify message.
type NotifyArgs struct {
	AppName  string
	Summary  string
	Body     string
	Urgency  Urgency
	Category *string
	ID       *string
}

// AcceptedArgs holds the per-type arguments of an accepted message.
type AcceptedArgs struct {
	ID string
}

// ErrorArgs holds the per-type arguments of an error message.
type ErrorArgs struct {
	Reason string
}

// Message is an immutable, constructed-once protocol value. Application
// code builds one with the New* constructors (which cannot omit a required
// argument, since those are plain Go parameters) or receives one from
// Decode. Either way, Encode re-serializes it, reusing the original wire
// bytes when re-encoding into the version it was decoded from.
type Message struct {
	version int
	typ     Type
	rawType string

	notify   *NotifyArgs
	accepted *AcceptedArgs
	errArgs  *ErrorArgs

	// unknownArgs holds the full argument bag for a TypeUnknown message,
	// keys other than __version__/msg_type. Never set for known types.
	unknownArgs map[string]any

	// cache holds the wire bytes already known for a given version: the
	// original decoded frame, or a previous Encode result.
	cache map[int][]byte
}

// Version returns the message's native protocol version.
func (m *Message) Version() int { return m.version }

// Type returns the message's known type, or TypeUnknown.
func (m *Message) Type() Type { return m.typ }

// RawType returns the literal wire msg_type string, including for unknown
// types.
func (m *Message) RawType() string { return m.rawType }

// Notify returns the notify arguments and true if this is a notify
// message.
func (m *Message) Notify() (*NotifyArgs, bool) {
	if m.typ != TypeNotify {
		return nil, false
	}
	return m.notify, true
}

// Accepted returns the accepted arguments and true if this is an accepted
// message.
func (m *Message) Accepted() (*AcceptedArgs, bool) {
	if m.typ != TypeAccepted {
		return nil, false
	}
	return m.accepted, true
}

// ErrorReason returns the error reason and true if this is an error
// message.
func (m *Message) ErrorReason() (string, bool) {
	if m.typ != TypeError {
		return "", false
	}
	return m.errArgs.Reason, true
}

// Arg looks up a single named argument by the type's declared schema.
// It returns ErrUnknownArg if name is not part of this message type's
// schema at all — distinct from a present argument whose value is nil
// (e.g. notify's category when not supplied), which returns (nil, nil).
func (m *Message) Arg(name string) (any, error) {
	switch m.typ {
	case TypeNotify:
		switch name {
		case "app_name":
			return m.notify.AppName, nil
		case "summary":
			return m.notify.Summary, nil
		case "body":
			return m.notify.Body, nil
		case "urgency":
			return m.notify.Urgency, nil
		case "category":
			if m.notify.Category == nil {
				return nil, nil
			}
			return *m.notify.Category, nil
		case "id":
			if m.notify.ID == nil {
				return nil, nil
			}
			return *m.notify.ID, nil
		}
	case TypeAccepted:
		if name == "id" {
			return m.accepted.ID, nil
		}
	case TypeError:
		if name == "reason" {
			return m.errArgs.Reason, nil
		}
	case TypeSubscribe, TypeSubscribed, TypeGoodbye:
		// no arguments declared
	default:
		if v, ok := m.unknownArgs[name]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownArg, name)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownArg, name)
}

// NotifyOption customizes an optional notify argument away from its
// declared default.
type NotifyOption func(*NotifyArgs)

// WithUrgency sets the notify urgency. Passing UrgencyLow is equivalent to
// omitting the option — the wire form is identical either way.
func WithUrgency(u Urgency) NotifyOption {
	return func(a *NotifyArgs) { a.Urgency = u }
}

// WithCategory sets the notify category.
func WithCategory(category string) NotifyOption {
	return func(a *NotifyArgs) { a.Category = &category }
}

// WithID sets the notify id (used by the hub to preserve a submitter's
// supplied id, and by the hub to assign a freshly minted one).
func WithID(id string) NotifyOption {
	return func(a *NotifyArgs) { a.ID = &id }
}

// NewNotify constructs a notify message. appName, summary and body are
// required by the type system; urgency/category/id default away per the
// protocol's default-elision rule unless overridden by opts.
func NewNotify(appName, summary, body string, opts ...NotifyOption) *Message {
	args := &NotifyArgs{AppName: appName, Summary: summary, Body: body, Urgency: UrgencyLow}
	for _, opt := range opts {
		opt(args)
	}
	return &Message{version: CurrentVersion, typ: TypeNotify, rawType: string(TypeNotify), notify: args, cache: map[int][]byte{}}
}

// NewAccepted constructs an accepted message.
func NewAccepted(id string) *Message {
	return &Message{version: CurrentVersion, typ: TypeAccepted, rawType: string(TypeAccepted), accepted: &AcceptedArgs{ID: id}, cache: map[int][]byte{}}
}

// NewSubscribe constructs a subscribe message (no arguments).
func NewSubscribe() *Message {
	return &Message{version: CurrentVersion, typ: TypeSubscribe, rawType: string(TypeSubscribe), cache: map[int][]byte{}}
}

// NewSubscribed constructs a subscribed message (no arguments).
func NewSubscribed() *Message {
	return &Message{version: CurrentVersion, typ: TypeSubscribed, rawType: string(TypeSubscribed), cache: map[int][]byte{}}
}

// NewGoodbye constructs a goodbye message (no arguments).
func NewGoodbye() *Message {
	return &Message{version: CurrentVersion, typ: TypeGoodbye, rawType: string(TypeGoodbye), cache: map[int][]byte{}}
}

// NewError constructs an error message.
func NewError(reason string) *Message {
	return &Message{version: CurrentVersion, typ: TypeError, rawType: string(TypeError), errArgs: &ErrorArgs{Reason: reason}, cache: map[int][]byte{}}
}

// Equal reports whether m and other carry the same type, version and
// argument values. Cached wire bytes are not part of equality.
func (m *Message) Equal(other *Message) bool {
	if other == nil {
		return false
	}
	if m.version != other.version || m.typ != other.typ || m.rawType != other.rawType {
		return false
	}
	switch m.typ {
	case TypeNotify:
		a, b := m.notify, other.notify
		if a.AppName != b.AppName || a.Summary != b.Summary || a.Body != b.Body || a.Urgency != b.Urgency {
			return false
		}
		if !strPtrEqual(a.Category, b.Category) || !strPtrEqual(a.ID, b.ID) {
			return false
		}
		return true
	case TypeAccepted:
		return m.accepted.ID == other.accepted.ID
	case TypeError:
		return m.errArgs.Reason == other.errArgs.Reason
	case TypeSubscribe, TypeSubscribed, TypeGoodbye:
		return true
	default:
		return mapsEqual(m.unknownArgs, other.unknownArgs)
	}
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || fmt.Sprint(bv) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

// toMap builds the wire mapping for a freshly-constructed known-type
// message, with defaulted arguments elided.
func (m *Message) toMap() (map[string]any, error) {
	out := map[string]any{
		"__version__": m.version,
		"msg_type":    m.rawType,
	}
	switch m.typ {
	case TypeNotify:
		out["app_name"] = m.notify.AppName
		out["summary"] = m.notify.Summary
		out["body"] = m.notify.Body
		if m.notify.Urgency != UrgencyLow {
			out["urgency"] = int(m.notify.Urgency)
		}
		if m.notify.Category != nil {
			out["category"] = *m.notify.Category
		}
		if m.notify.ID != nil {
			out["id"] = *m.notify.ID
		}
	case TypeAccepted:
		out["id"] = m.accepted.ID
	case TypeError:
		out["reason"] = m.errArgs.Reason
	case TypeSubscribe, TypeSubscribed, TypeGoodbye:
		// no arguments
	default:
		return nil, fmt.Errorf("protocol: cannot freshly encode unknown type %q", m.rawType)
	}
	return out, nil
}

// Encode serializes m for the given protocol version. Encoding into the
// version the message already has bytes cached for — its native version,
// whether decoded or previously encoded — returns that cached slice
// verbatim. Any other version fails with ErrUnsupportedVersion, since the
// baseline codec performs no down/up-conversion.
func (m *Message) Encode(version int) ([]byte, error) {
	if b, ok := m.cache[version]; ok {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}
	if version != m.version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	payload, err := m.toMap()
	if err != nil {
		return nil, err
	}
	// Sorted keys make the wire bytes canonical: Go map iteration order
	// is random, and equal messages must encode to equal bytes.
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	b := buf.Bytes()
	if m.cache == nil {
		m.cache = map[int][]byte{}
	}
	m.cache[version] = b

	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// EncodeForVersion implements the interface the hub's fan-out loop depends
// on, so that test doubles can model codecs with a wider or narrower set
// of encodable versions than this baseline's single-version codec.
func (m *Message) EncodeForVersion(version int) ([]byte, error) {
	return m.Encode(version)
}
