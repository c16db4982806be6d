package questions

// Remote interface names on each question object.
const (
	GenericInterface  = "org.opensuse.Agama1.Questions.Generic"
	PasswordInterface = "org.opensuse.Agama1.Questions.WithPassword"
)

// Question is the projection of one remote question object. WithPassword is
// nil unless the object advertised PasswordInterface when it was enumerated.
type Question struct {
	Generic      GenericQuestion       `json:"generic"`
	WithPassword *QuestionWithPassword `json:"with_password"`
}

// GenericQuestion carries the properties every question exposes.
type GenericQuestion struct {
	ID            uint32            `json:"id"`
	Class         string            `json:"class"`
	Text          string            `json:"text"`
	Options       []string          `json:"options"`
	DefaultOption string            `json:"default_option"`
	Data          map[string]string `json:"data"`
}

// QuestionWithPassword is the password extension.
type QuestionWithPassword struct {
	Password string `json:"password"`
}

// Variant reports which interface set the question was projected from.
func (q Question) Variant() Variant {
	if q.WithPassword != nil {
		return VariantWithPassword
	}
	return VariantGeneric
}

// Answer is a client's reply to one question.
type Answer struct {
	Generic      GenericAnswer   `json:"generic"`
	WithPassword *PasswordAnswer `json:"with_password,omitempty"`
}

// GenericAnswer holds the chosen option.
type GenericAnswer struct {
	Answer string `json:"answer"`
}

// PasswordAnswer holds the secret for password questions.
type PasswordAnswer struct {
	Password string `json:"password"`
}
