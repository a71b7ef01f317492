package token

type secretProvider interface {
	Get() []byte
}

// SecretString serves a signing secret from a static string.
type SecretString struct {
	secret []byte
}

func NewSecretString(secret string) *SecretString {
	return &SecretString{
		secret: []byte(secret),
	}
}

func (s *SecretString) Get() []byte {
	return s.secret
}
