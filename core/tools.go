package orchestration

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/voicedesk/voicedesk-core/core/gateway"
)

const (
	toolCheckAvailability = "checkAvailability"
	toolGetAvailableSlots = "getAvailableSlots"
	toolBookAppointment   = "bookAppointment"
)

type customerArguments struct {
	Name  string `json:"name"            jsonschema:"description=Customer's full name"`
	Email string `json:"email,omitempty" jsonschema:"description=Customer's email address"`
	Phone string `json:"phone,omitempty" jsonschema:"description=Customer's phone number"`
}

type checkAvailabilityArguments struct {
	StartTime string `json:"startTime"         jsonschema:"description=Start of the window to check, as a local timestamp like 2025-03-10T14:00:00"`
	EndTime   string `json:"endTime,omitempty" jsonschema:"description=End of the window to check; omit to check a single appointment starting at startTime"`
}

type availableSlotsArguments struct {
	Date        string `json:"date"                  jsonschema:"description=Day to list openings for, formatted as 2025-03-10"`
	SlotMinutes int    `json:"slotMinutes,omitempty" jsonschema:"description=Desired appointment length in minutes"`
}

type bookAppointmentArguments struct {
	StartTime string             `json:"startTime"         jsonschema:"description=Appointment start, as a local timestamp like 2025-03-10T14:00:00"`
	EndTime   string             `json:"endTime,omitempty" jsonschema:"description=Appointment end; omit to use the default appointment length"`
	Customer  *customerArguments `json:"customer"          jsonschema:"description=The customer the appointment is for"`
	Notes     string             `json:"notes,omitempty"   jsonschema:"description=Anything the caller wants noted on the appointment"`
}

// toolDeclarations describes the scheduling tools advertised to the
// language model. Schemas are reflected from the argument structs so the
// wire contract can never drift from what the parser accepts.
func toolDeclarations() ([]gateway.ToolDeclaration, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}

	declarations := []struct {
		name        string
		description string
		arguments   any
	}{
		{
			name:        toolCheckAvailability,
			description: "Check whether a specific time window is free on the calendar. Call this whenever the caller names a concrete time.",
			arguments:   &checkAvailabilityArguments{},
		},
		{
			name:        toolGetAvailableSlots,
			description: "List the open appointment slots on a given day. Call this when the caller asks what times are available.",
			arguments:   &availableSlotsArguments{},
		},
		{
			name:        toolBookAppointment,
			description: "Book an appointment for a customer at a confirmed time. Only call this after the caller has agreed to a specific slot.",
			arguments:   &bookAppointmentArguments{},
		},
	}

	tools := make([]gateway.ToolDeclaration, 0, len(declarations))
	for _, declaration := range declarations {
		schema, err := json.Marshal(reflector.Reflect(declaration.arguments))
		if err != nil {
			return nil, fmt.Errorf("failed to reflect schema for %s: %w", declaration.name, err)
		}

		tools = append(tools, gateway.ToolDeclaration{
			Name:        declaration.name,
			Description: declaration.description,
			Parameters:  schema,
		})
	}

	return tools, nil
}

// inferToolName recovers the intended tool from the shape of its
// arguments when the model streamed a call without naming one. A customer
// can only belong to a booking, a time window to an availability check,
// and a bare date to a slot listing.
func inferToolName(arguments string) (string, bool) {
	var shape struct {
		Customer  json.RawMessage `json:"customer"`
		StartTime string          `json:"startTime"`
		Date      string          `json:"date"`
	}
	if err := json.Unmarshal([]byte(arguments), &shape); err != nil {
		return "", false
	}

	switch {
	case len(shape.Customer) > 0 && string(shape.Customer) != "null":
		return toolBookAppointment, true
	case shape.StartTime != "":
		return toolCheckAvailability, true
	case shape.Date != "":
		return toolGetAvailableSlots, true
	}

	return "", false
}
