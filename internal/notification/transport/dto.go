// Package transport defines request shapes for the notification API.
package transport

// NotifyRequest pushes a notification to an agent.
type NotifyRequest struct {
	AgentID  string   `json:"agentId" validate:"required,uuid"`
	Title    string   `json:"title" validate:"required,max=200"`
	Body     string   `json:"body" validate:"required,max=2000"`
	URL      string   `json:"url" validate:"omitempty,max=500"`
	Channels []string `json:"channels" validate:"omitempty,dive,oneof=inapp email"`
}
