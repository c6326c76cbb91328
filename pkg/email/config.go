package email

// Config holds email service configuration.
// Postmark tokens are optional so that development environments can run with
// the file-based DevSender. SenderEmail is the default From address used when
// a message does not carry its own.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
	DevOutputDir         string `env:"DEV_OUTPUT_DIR" envDefault:"tmp/emails"`
}

// UsePostmark reports whether both Postmark tokens are configured.
func (c Config) UsePostmark() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}
