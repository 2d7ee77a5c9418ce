package parser

const (
	errorPenalty   = 0.10
	warningPenalty = 0.05
)

// DecodedMessage is the result of running one parser over one payload. It is
// built by the parser and handed over to consumers, nothing mutates it after
// Decode returns.
type DecodedMessage struct {
	ParserName    string
	ParserVersion string
	MessageType   string
	MessageName   string
	ProtocolInfo  map[string]any

	fields     []Field
	errors     []string
	warnings   []string
	confidence float64
}

func NewDecodedMessage(p Parser, messageType, messageName string) *DecodedMessage {
	return &DecodedMessage{
		ParserName:    p.Name(),
		ParserVersion: p.Version(),
		MessageType:   messageType,
		MessageName:   messageName,
		confidence:    1.0,
	}
}

func (m *DecodedMessage) AddField(f Field) {
	m.fields = append(m.fields, f)
}

func (m *DecodedMessage) AddError(msg string) {
	m.errors = append(m.errors, msg)
	m.penalize(errorPenalty)
}

func (m *DecodedMessage) AddWarning(msg string) {
	m.warnings = append(m.warnings, msg)
	m.penalize(warningPenalty)
}

func (m *DecodedMessage) penalize(p float64) {
	m.confidence -= p
	if m.confidence < 0 {
		m.confidence = 0
	}
}

func (m *DecodedMessage) Fields() []Field {
	return append([]Field(nil), m.fields...)
}

func (m *DecodedMessage) Errors() []string {
	return append([]string(nil), m.errors...)
}

func (m *DecodedMessage) Warnings() []string {
	return append([]string(nil), m.warnings...)
}

func (m *DecodedMessage) Confidence() float64 {
	return m.confidence
}

// Valid reports a clean decode: no errors and confidence above one half.
func (m *DecodedMessage) Valid() bool {
	return len(m.errors) == 0 && m.confidence > 0.5
}

func (m *DecodedMessage) Field(name string) (Field, bool) {
	for _, f := range m.fields {
		if f.name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldsInRange returns the fields whose bit range overlaps [start, end].
func (m *DecodedMessage) FieldsInRange(start, end int) []Field {
	var out []Field
	for _, f := range m.fields {
		if f.Overlaps(start, end) {
			out = append(out, f)
		}
	}
	return out
}
