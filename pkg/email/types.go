/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package email implements work-instruction email ingestion (C7):
// compose/send of outbound work instructions, single-flight IMAP
// polling of inbound replies, a tolerant structured-then-LLM parse
// pipeline, and a chronological per-work-item thread store.
package email

import "time"

// Direction distinguishes an outbound instruction from an inbound reply.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Message is one entry in a work item's correspondence thread.
type Message struct {
	MessageID   string    `json:"message_id"`
	WorkItemID  string    `json:"workitem_id"`
	Direction   Direction `json:"direction"`
	From        string    `json:"from"`
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
	ParseMethod string    `json:"parse_method,omitempty"`
}

// ParseMethod values recorded against an inbound Message.
const (
	ParseMethodStructured = "structured"
	ParseMethodLLM        = "llm"
	ParseMethodError      = "error"
)

// Instruction is the structured content a reply parses down to —
// whatever subset of the fields the reply actually populated.
type Instruction struct {
	Status    string
	Comment   string
	TimeSpent *float64
	NextSteps string
}

// RawMessage is an inbound message as fetched from the mailbox, before
// any work-item association or parsing.
type RawMessage struct {
	MessageID string
	Subject   string
	From      string
	Body      []byte
	MediaType string
	Charset   string
}
