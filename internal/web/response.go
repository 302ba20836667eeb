// Package web exposes the billing graph over HTTP: a JSON:API read surface
// for the synced entities and the provider webhook endpoint.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/DataDog/jsonapi"
)

// JSONAPIMediaType is the official JSON:API media type.
const JSONAPIMediaType = "application/vnd.api+json"

// RenderJSONAPI marshals a single resource or collection. Marshaling runs
// before any write so a failure never produces a partial response.
func RenderJSONAPI(w http.ResponseWriter, status int, payload interface{}, opts ...jsonapi.MarshalOption) error {
	data, err := jsonapi.Marshal(payload, opts...)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", JSONAPIMediaType)
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

type errorObject struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

type errorDocument struct {
	Errors []errorObject `json:"errors"`
}

// RenderError writes a JSON:API error document.
func RenderError(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", JSONAPIMediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorDocument{
		Errors: []errorObject{{
			Status: http.StatusText(status),
			Title:  title,
			Detail: detail,
		}},
	})
}
