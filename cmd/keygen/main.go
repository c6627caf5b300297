// Command keygen prints device secrets and operator password hashes for the
// DEVICE_KEYS_JSON and OPERATOR_PASSWORD_HASH settings.
//
//	go run ./cmd/keygen -devices esp32-lab-01,esp32-lab-02
//	go run ./cmd/keygen -devices esp32-lab-01 -bcrypt
//	go run ./cmd/keygen -password 'change-me'
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"telemetry-http-service/pkg/utils"
)

func main() {
	devices := flag.String("devices", "", "comma separated device ids to generate keys for")
	size := flag.Int("bytes", 24, "random bytes per device key")
	hashed := flag.Bool("bcrypt", false, "store bcrypt hashes in the map instead of the plain keys")
	password := flag.String("password", "", "operator password to hash")
	flag.Parse()

	if *password != "" {
		hash, err := utils.HashPassword(*password)
		if err != nil {
			fail(err)
		}
		fmt.Printf("OPERATOR_PASSWORD_HASH='%s'\n", hash)
	}

	if *devices == "" {
		if *password == "" {
			flag.Usage()
			os.Exit(2)
		}
		return
	}

	keys := make(map[string]string)
	for _, id := range strings.Split(*devices, ",") {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		secret, err := utils.RandomSecret(*size)
		if err != nil {
			fail(err)
		}
		// 明文密钥只打印一次，烧录到设备
		fmt.Printf("%s\t%s\n", id, secret)
		if *hashed {
			if secret, err = utils.HashPassword(secret); err != nil {
				fail(err)
			}
		}
		keys[id] = secret
	}

	out, err := json.Marshal(keys)
	if err != nil {
		fail(err)
	}
	fmt.Printf("DEVICE_KEYS_JSON='%s'\n", out)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
	os.Exit(1)
}
