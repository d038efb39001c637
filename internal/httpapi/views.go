package httpapi

import (
	"github.com/carbonlog/carbonlog/internal/advisor"
	"github.com/carbonlog/carbonlog/internal/dashboard"
	"github.com/carbonlog/carbonlog/internal/delta"
	"github.com/carbonlog/carbonlog/internal/record"
	"github.com/carbonlog/carbonlog/internal/usecase"
)

type userResponse struct {
	Status string       `json:"status"`
	User   usecase.User `json:"user"`
}

type dashboardResponse struct {
	Status string        `json:"status"`
	Data   DashboardView `json:"dashboard_data"`
}

// DashboardView is the wire shape of a dashboard. Entries are the records as
// they were submitted.
type DashboardView struct {
	LatestEntry     *record.Record  `json:"latest_entry"`
	PreviousEntry   *record.Record  `json:"previous_entry"`
	History         []record.Record `json:"history"`
	Recommendations DeltaView       `json:"recommendations"`
}

type DeltaView struct {
	TotalDelta   float64      `json:"totalDelta"`
	TopIncreases []ChangeView `json:"topIncreases"`
	TopDecreases []ChangeView `json:"topDecreases"`
}

type ChangeView struct {
	Key      string  `json:"key"`
	Delta    float64 `json:"delta"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
}

type ChatView struct {
	Status    string             `json:"status"`
	Reply     string             `json:"reply"`
	Citations []advisor.Citation `json:"citations"`
	Fallback  bool               `json:"fallback"`
}

func FromDashboard(data dashboard.Data) DashboardView {
	history := data.History
	if history == nil {
		history = []record.Record{}
	}
	return DashboardView{
		LatestEntry:     data.Latest,
		PreviousEntry:   data.Previous,
		History:         history,
		Recommendations: FromDeltas(data.Deltas),
	}
}

func FromDeltas(result delta.Result) DeltaView {
	return DeltaView{
		TotalDelta:   result.TotalDelta.InexactFloat64(),
		TopIncreases: fromChanges(result.TopIncreases),
		TopDecreases: fromChanges(result.TopDecreases),
	}
}

func fromChanges(changes []delta.Change) []ChangeView {
	out := make([]ChangeView, 0, len(changes))
	for _, c := range changes {
		out = append(out, ChangeView{
			Key:      c.Key,
			Delta:    c.Delta.InexactFloat64(),
			Current:  c.Current.InexactFloat64(),
			Previous: c.Previous.InexactFloat64(),
		})
	}
	return out
}

func FromReply(reply advisor.Reply) ChatView {
	citations := reply.Citations
	if citations == nil {
		citations = []advisor.Citation{}
	}
	return ChatView{
		Status:    "success",
		Reply:     reply.Text,
		Citations: citations,
		Fallback:  reply.Fallback,
	}
}
