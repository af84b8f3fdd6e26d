// Package logging writes one JSON object per line through the standard
// logger.
package logging

import (
	"encoding/json"
	"log"
	"time"
)

type Fields struct {
	Component  string `json:"component"`
	OrderID    int64  `json:"order_id,omitempty"`
	Customer   string `json:"customer,omitempty"`
	Channel    string `json:"channel,omitempty"`
	Step       string `json:"step,omitempty"`
	Status     string `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

type record struct {
	Fields
	Timestamp string `json:"timestamp"`
}

func Log(fields Fields) {
	data, err := json.Marshal(record{Fields: fields, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		log.Printf("{\"component\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Component, err.Error())
		return
	}
	log.Print(string(data))
}

func Error(component, step string, err error) {
	Log(Fields{Component: component, Step: step, Status: "error", Error: err.Error()})
}
