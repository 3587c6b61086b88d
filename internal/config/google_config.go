package config

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
}

type Google struct {
	src source
}

var _ GoogleConfig = Google{}

func (g Google) GetGoogleClientID() string {
	return g.src.str("google_client_id", "GOOGLE_CLIENT_ID", "")
}

func (g Google) GetGoogleClientSecret() string {
	return g.src.str("google_client_secret", "GOOGLE_CLIENT_SECRET", "")
}

func (g Google) GetGoogleRedirectURL() string {
	return g.src.str("google_redirect_url", "GOOGLE_REDIRECT_URL", "http://127.0.0.1:8765/callback")
}
