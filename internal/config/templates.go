package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "fields":
		return fieldsTemplate, nil
	case "service":
		return serviceTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func TemplateKinds() []string {
	return []string{"fields", "service"}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const fieldsTemplate = `name = "sps30"
description = "Particulate matter sensor on an SHDLC link"

[[field]]
name = "device_reset"
format = "%211.0Z"
description = "command 0xD3, no payload"

[[field]]
name = "cleaning_interval"
format = "%128.4Z"
description = "command 0x80, 32-bit seconds"

[[field]]
name = "fan_speed_offset"
format = "%+96.2Z"
description = "command 0x60, signed 16-bit"

[[field]]
name = "temperature"
format = "%+.5m"
description = "mantissa and exponent text"

[[field]]
name = "flow"
format = "%#8R"
description = "IEEE754 double, little-endian on the wire"
`

const serviceTemplate = `name = "streamconv"
addr = ":9200"
cors_origins = ["http://localhost:3000"]
fields = "fields.toml"

[log]
level = "info"
timestamp = true
no_color = false
file = ""

[reporter]
enabled = true
timestamps = false
message_timeout = "10s"
poll_interval = "1s"

[codecs]
float_order = "big"
strict_framing = false
`
