// Command smoketest exercises a running server end to end.
//
//	DEVICE_KEY=secret-123 go run ./cmd/smoketest -base http://localhost:8080/api
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
)

type envelope struct {
	OK         bool                   `json:"ok"`
	InsertedID uint64                 `json:"inserted_id"`
	Version    string                 `json:"version"`
	Data       interface{}            `json:"data"`
	Error      map[string]interface{} `json:"error"`
}

type check struct {
	name string
	run  func(c *resty.Client) error
}

func main() {
	_ = godotenv.Load()

	base := flag.String("base", "http://localhost:8080/api", "API base URL")
	deviceID := flag.String("device", "esp32-lab-01", "device id to ingest as")
	flag.Parse()

	key := os.Getenv("DEVICE_KEY")
	if key == "" {
		key = "secret-123"
	}

	client := resty.New().
		SetBaseURL(*base).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	checks := []check{
		{"health", func(c *resty.Client) error {
			var out envelope
			resp, err := c.R().SetResult(&out).Get("/health")
			return expect(resp, err, 200, out.OK && out.Version != "")
		}},
		{"ingest", func(c *resty.Client) error {
			var out envelope
			resp, err := c.R().
				SetHeader("x-device-key", key).
				SetBody(map[string]interface{}{
					"device_id": *deviceID,
					"ts_ms":     time.Now().UnixMilli(),
					"uptime_s":  1234,
					"temp_c":    25.5,
					"hum_pct":   60.0,
					"status":    "OK",
					"fw":        "v1.0.0",
					"rssi":      -50,
					"health":    100,
					"fail_pct":  0.02,
				}).
				SetResult(&out).
				Post("/ingest")
			return expect(resp, err, 200, out.OK && out.InsertedID > 0)
		}},
		{"ingest rate limited", func(c *resty.Client) error {
			resp, err := c.R().
				SetHeader("x-device-key", key).
				SetBody(map[string]interface{}{"device_id": *deviceID}).
				Post("/ingest")
			return expect(resp, err, 429, true)
		}},
		{"ingest auth fail", func(c *resty.Client) error {
			resp, err := c.R().
				SetBody(map[string]interface{}{"device_id": *deviceID + "-noauth"}).
				Post("/ingest")
			return expect(resp, err, 401, true)
		}},
		{"latest", func(c *resty.Client) error {
			var out envelope
			resp, err := c.R().SetQueryParam("device_id", *deviceID).SetResult(&out).Get("/latest")
			return expect(resp, err, 200, out.OK && out.Data != nil)
		}},
		{"range", func(c *resty.Client) error {
			var out envelope
			resp, err := c.R().
				SetQueryParams(map[string]string{"device_id": *deviceID, "minutes": "5"}).
				SetResult(&out).
				Get("/range")
			return expect(resp, err, 200, out.OK)
		}},
		{"range missing param", func(c *resty.Client) error {
			resp, err := c.R().SetQueryParam("device_id", *deviceID).Get("/range")
			return expect(resp, err, 400, true)
		}},
	}

	failed := 0
	for _, ch := range checks {
		if err := ch.run(client); err != nil {
			failed++
			fmt.Printf("FAIL %-22s %v\n", ch.name, err)
			continue
		}
		fmt.Printf("PASS %s\n", ch.name)
	}

	if failed > 0 {
		fmt.Printf("%d/%d checks failed\n", failed, len(checks))
		os.Exit(1)
	}
}

func expect(resp *resty.Response, err error, status int, bodyOK bool) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() != status {
		return fmt.Errorf("status %d, want %d: %s", resp.StatusCode(), status, resp.String())
	}
	if !bodyOK {
		return fmt.Errorf("unexpected body: %s", resp.String())
	}
	return nil
}
