package domain

type ContactInfo struct {
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Hours    string `json:"hours"`
}

type SocialMedia struct {
	Instagram    string `json:"instagram"`
	Facebook     string `json:"facebook"`
	InstagramURL string `json:"instagram_url"`
	FacebookURL  string `json:"facebook_url"`
}

type SiteConfig struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Logo        string      `json:"logo"`
	Tagline     string      `json:"tagline"`
	Contact     ContactInfo `json:"contact"`
	Social      SocialMedia `json:"social"`
}
