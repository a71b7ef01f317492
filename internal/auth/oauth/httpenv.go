package oauth

import "net/http"

// HTTPEnv implements Env on top of short-lived HTTP cookies, surviving the
// redirect to the provider and back. Keys already carry the provider name,
// so they map onto cookie names directly.
type HTTPEnv struct {
	w http.ResponseWriter
	r *http.Request
}

func NewHTTPEnv(w http.ResponseWriter, r *http.Request) *HTTPEnv {
	return &HTTPEnv{w: w, r: r}
}

func (e *HTTPEnv) Save(key, val string) error {
	http.SetCookie(e.w, &http.Cookie{
		Name:     key,
		Value:    val,
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (e *HTTPEnv) Load(key string) (string, error) {
	c, err := e.r.Cookie(key)
	if err != nil {
		return "", err
	}

	return c.Value, nil
}
