package config

import _ "embed"

//go:embed config.yaml
var DefaultConfigYaml string

//go:embed .env.example
var EnvExample string
