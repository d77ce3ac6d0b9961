package domain

// Tenant is the organization a phone identity and its application users
// belong to. Only the fields needed for hint resolution are modeled here.
type Tenant struct {
	ID        string
	Name      string
	Subdomain string // e.g. "acme" for acme.example.com
	Domain    string // full custom domain, e.g. "chat.acme.io"
}
