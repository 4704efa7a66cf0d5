package imap

// Address is one address member of an Envelope field, RFC 9051 §6.4.4.
type Address struct {
	Name    string
	ADL     string
	Mailbox string
	Host    string
}

// Envelope is the parsed ENVELOPE fetch item, spec.md §3 "Envelope".
// Subject and each Address.Name have already passed through RFC 2047
// encoded-word decoding (spec.md §4.2.2).
type Envelope struct {
	Date        string
	Subject     string
	From        []Address
	Sender      []Address
	ReplyTo     []Address
	To          []Address
	CC          []Address
	BCC         []Address
	InReplyTo   string
	MessageID   string
}

// BodyStructureDisposition is the optional Content-Disposition member of a
// BodyStructure.
type BodyStructureDisposition struct {
	Name   string
	Params map[string]string
}

// BodyStructure is the recursive BODY/BODYSTRUCTURE fetch item, spec.md §3
// "BodyStructure". Multipart iff Type == "multipart"; then Parts is
// non-empty and the single-part fields (Subtype/Params/Id/...) are unused.
type BodyStructure struct {
	Type        string
	Subtype     string
	Params      map[string]string
	ID          string
	Description string
	Encoding    string
	Size        uint32

	// Lines is set only for Type == "text" single-part bodies.
	Lines *uint32
	MD5   string

	Disposition *BodyStructureDisposition
	Language    []string
	Location    string

	// Envelope is set only for Type == "message" / Subtype == "rfc822".
	Envelope *Envelope
	// Body is the nested message/rfc822 body, mirrors Envelope's condition.
	Body *BodyStructure

	Parts []BodyStructure

	// Extension carries any trailing extension data this parser chose not
	// to interpret, verbatim as the remaining unparsed token text.
	Extension string
}

// IsMultipart reports whether this node is a multipart body.
func (b BodyStructure) IsMultipart() bool {
	return b.Type == "multipart"
}

// SectionSpec identifies a MIME part / header selector inside BODY[...],
// spec.md Glossary "Section spec". SectionSpec has no String method; the
// FetchAttrs.Body map key is the section text as it appears on the wire,
// e.g. "", "HEADER", "1.2.MIME", with a trailing "<offset>" suffix for
// partial fetches.
type SectionSpec struct {
	// Path is the dotted part-number prefix, e.g. []int{1,2} for "1.2".
	Path []int
	// Specifier is "", "HEADER", "HEADER.FIELDS", "HEADER.FIELDS.NOT",
	// "TEXT", or "MIME".
	Specifier string
	// HeaderFields lists field names for HEADER.FIELDS(.NOT).
	HeaderFields []string
	// Partial, when non-nil, is the "<offset>" suffix.
	Partial *uint32
}

// FetchAttrs is the keyed container of everything one FETCH response can
// carry for a single message, spec.md §3 "FetchAttrs".
type FetchAttrs struct {
	Flags         *FlagSet
	UID           *uint64
	InternalDate  *string
	RFC822Size    *uint64
	Envelope      *Envelope
	BodyStructure *BodyStructure
	// Body maps a dotted section key (the text inside BODY[...], FETCH body
	// parsing in spec.md §4.2.2) to its literal/nstring bytes.
	Body map[string][]byte
}
