package model

// SecretRef names one key inside a JSON Secrets Manager secret.
type SecretRef struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// Environment is a target environment users can request access to.
type Environment struct {
	Name      string    `yaml:"name"`
	URLSecret SecretRef `yaml:"url_secret"`
	// Rank orders environments on the URLs page; lower first.
	Rank int `yaml:"rank"`
}

// ApprovedEnvironment is an environment the current user may use, with its
// resolved URL and, when one is published, a VPN profile download link.
type ApprovedEnvironment struct {
	Request    AccessRequest
	URL        string
	VPNProfile string
}
