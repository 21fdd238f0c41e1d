package protocol

import (
	"encoding/json"
	"fmt"
)

// Command names (client -> device)
const (
	CmdPoll = "POLL"
	CmdGet  = "GET"
	CmdSet  = "SET"
)

// Command is one outbound message to the device.
// A nil *Command on the outbound queue means "terminate the session".
type Command struct {
	Name string
	// Page is the requested page id for GET.
	Page int
	// ElementID and Value carry a SET.
	ElementID int
	Value     any
}

// Poll asks the device for its current state
func Poll() *Command {
	return &Command{Name: CmdPoll}
}

// Get requests the description of page
func Get(page int) *Command {
	return &Command{Name: CmdGet, Page: page}
}

// Set reports a user-originated value for elementID
func Set(elementID int, value any) *Command {
	return &Command{Name: CmdSet, ElementID: elementID, Value: value}
}

// MarshalJSON encodes the command in the device vocabulary:
//
//	{"CMD":"POLL"}
//	{"CMD":"GET","VAL":{"PAGE":0}}
//	{"CMD":"SET","VAL":[0,1]}
func (c *Command) MarshalJSON() ([]byte, error) {
	switch c.Name {
	case CmdPoll:
		return json.Marshal(struct {
			Cmd string `json:"CMD"`
		}{c.Name})
	case CmdGet:
		return json.Marshal(struct {
			Cmd string         `json:"CMD"`
			Val map[string]int `json:"VAL"`
		}{c.Name, map[string]int{FieldPage: c.Page}})
	case CmdSet:
		return json.Marshal(struct {
			Cmd string `json:"CMD"`
			Val [2]any `json:"VAL"`
		}{c.Name, [2]any{c.ElementID, c.Value}})
	default:
		return nil, fmt.Errorf("unknown command %q", c.Name)
	}
}

// Encode returns the JSON payload of the command
func (c *Command) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// String returns the JSON form for logs
func (c *Command) String() string {
	if c == nil {
		return "<terminate>"
	}
	data, err := c.Encode()
	if err != nil {
		return fmt.Sprintf("Command{%s: %v}", c.Name, err)
	}
	return string(data)
}
