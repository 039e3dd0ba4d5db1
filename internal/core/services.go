package core

import "time"

type Services struct {
	AccessRequest *AccessRequestService
	Environment   *EnvironmentService
	Auth          *AuthService
}

// Deps are the adapters the services are built on. Profiles may be nil.
type Deps struct {
	Requests   AccessRequestStore
	Identity   IdentityProvider
	Secrets    SecretStore
	Profiles   ProfileStore
	Catalogue  Catalogue
	AdminGroup string
	VPNLinkTTL time.Duration
}

func NewServices(d Deps) *Services {
	return &Services{
		AccessRequest: NewAccessRequestService(d.Requests, d.Catalogue),
		Environment:   NewEnvironmentService(d.Requests, d.Secrets, d.Profiles, d.Catalogue, d.VPNLinkTTL),
		Auth:          NewAuthService(d.Identity, d.AdminGroup),
	}
}
