package main

import (
	"net/http"

	"github.com/bytedance/sonic"
)

type messageDTO struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {

	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		statusCode = http.StatusInternalServerError
		data = []byte(`{"message":"could not encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, messageDTO{Message: message})
}
