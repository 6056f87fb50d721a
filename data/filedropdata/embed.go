package filedropdata

import (
	"embed"
)

//go:embed templates/listing.gohtml
//go:embed templates/plain.gohtml
var TemplateRoot embed.FS
