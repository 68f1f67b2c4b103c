package template

import "embed"

//go:embed nginx/challenge.tmpl
var nginxTemplates embed.FS

//go:embed nginx/options-ssl-nginx.conf
var optionsSSL []byte

// OptionsSSL returns the bundled shared ssl options payload.
func OptionsSSL() []byte {
	return optionsSSL
}
