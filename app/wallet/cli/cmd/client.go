package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var client = http.Client{
	Timeout: 30 * time.Second,
}

// errorResponse is the body a node returns for a failed call.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func get(url string, resp any) error {
	r, err := client.Get(url)
	if err != nil {
		return err
	}
	defer r.Body.Close()

	return decode(r, resp)
}

func post(url string, body any, resp any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	r, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer r.Body.Close()

	return decode(r, resp)
}

func decode(r *http.Response, resp any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	if r.StatusCode != http.StatusOK {
		var er errorResponse
		if err := json.Unmarshal(data, &er); err != nil || er.Error == "" {
			return fmt.Errorf("node returned %s", r.Status)
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("node returned %s: %s %v", r.Status, er.Error, er.Fields)
		}
		return fmt.Errorf("node returned %s: %s", r.Status, er.Error)
	}

	if resp == nil {
		return nil
	}

	return json.Unmarshal(data, resp)
}
