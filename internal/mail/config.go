package mail

// Config holds email delivery configuration.
// Postmark tokens are optional to support development environments where the
// file-based dev sender is used instead.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
	DevOutputDir         string `env:"MAIL_DEV_OUTPUT_DIR" envDefault:"./tmp/mail"`
}
