package research

import (
	"fmt"
	"strings"

	"github.com/sells-group/sales-intel/internal/model"
)

const summaryItems = 3

const noneIdentified = "none identified"

// Summarize composes the report summary from the first few items of each
// collection. The same report always yields the same summary.
func Summarize(r *model.ResearchReport) string {
	name := r.CompanyProfile.Name
	if name == "" {
		name = model.DisplayName(r.Subject)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s", name)
	if r.CompanyProfile.Industry != "" {
		fmt.Fprintf(&sb, " (%s)", r.CompanyProfile.Industry)
	}
	sb.WriteString(". ")
	fmt.Fprintf(&sb, "Competitors: %s. ", firstItems(r.Competitors))
	fmt.Fprintf(&sb, "Tech stack: %s. ", firstItems(r.TechStack))
	fmt.Fprintf(&sb, "Pain points: %s.", firstItems(r.PainPoints))

	if r.Kind == model.ReportKindComprehensive {
		titles := make([]string, 0, len(r.DecisionMakers))
		for _, dm := range r.DecisionMakers {
			titles = append(titles, dm.Title)
		}
		fmt.Fprintf(&sb, " Decision makers: %s.", firstItems(titles))
		fmt.Fprintf(&sb, " Market trends: %s.", firstItems(r.MarketTrends))
		fmt.Fprintf(&sb, " Buying signals: %s.", firstItems(r.BuyingSignals))
	}
	return sb.String()
}

func firstItems(items []string) string {
	if len(items) == 0 {
		return noneIdentified
	}
	if len(items) > summaryItems {
		items = items[:summaryItems]
	}
	return strings.Join(items, ", ")
}
