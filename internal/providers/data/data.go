package data

import _ "embed"

//go:embed routes.json
var RoutesData []byte
