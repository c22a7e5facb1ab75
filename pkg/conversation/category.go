package conversation

import "fmt"

// Category groups conversations and quick actions by product management area.
type Category string

const (
	CategoryStrategy    Category = "strategy"
	CategoryExecution   Category = "execution"
	CategoryResearch    Category = "research"
	CategoryAnalytics   Category = "analytics"
	CategoryTechnical   Category = "technical"
	CategoryStakeholder Category = "stakeholder"
)

// QuickAction is a canned prompt offered for a category.
type QuickAction struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// CategoryInfo describes a category and its quick actions.
type CategoryInfo struct {
	Name    Category      `json:"name"`
	Label   string        `json:"label"`
	Actions []QuickAction `json:"actions"`
}

var categories = []CategoryInfo{
	{
		Name:  CategoryStrategy,
		Label: "Strategy",
		Actions: []QuickAction{
			{ID: "product-vision", Title: "Product Vision", Prompt: "Help me write a product vision statement and north star metric for my product."},
			{ID: "competitive-analysis", Title: "Competitive Analysis", Prompt: "Create a competitive analysis in table format comparing my product with its main competitors."},
			{ID: "go-to-market", Title: "Go-to-Market Plan", Prompt: "Help me build a go-to-market strategy for a new product launch."},
		},
	},
	{
		Name:  CategoryExecution,
		Label: "Execution",
		Actions: []QuickAction{
			{ID: "roadmap", Title: "Roadmap Planning", Prompt: "Help me build a quarterly product roadmap with milestones and outcomes."},
			{ID: "prioritization", Title: "Feature Prioritization", Prompt: "How to prioritize features in my backlog using the RICE framework?"},
			{ID: "user-stories", Title: "User Stories", Prompt: "Help me write user stories with acceptance criteria for a new feature."},
		},
	},
	{
		Name:  CategoryResearch,
		Label: "Research",
		Actions: []QuickAction{
			{ID: "user-persona", Title: "User Personas", Prompt: "Create a user persona for my product's primary customer segment."},
			{ID: "interview-guide", Title: "Interview Guide", Prompt: "Help me design a customer interview guide for product discovery research."},
		},
	},
	{
		Name:  CategoryAnalytics,
		Label: "Analytics",
		Actions: []QuickAction{
			{ID: "kpi-framework", Title: "KPI Framework", Prompt: "Help me define KPIs and success metrics for my product."},
			{ID: "ab-test", Title: "A/B Test Design", Prompt: "How to design an ab test experiment with a clear hypothesis and success metrics?"},
			{ID: "funnel", Title: "Funnel Analysis", Prompt: "Help me analyze my conversion funnel and reduce churn."},
		},
	},
	{
		Name:  CategoryTechnical,
		Label: "Technical",
		Actions: []QuickAction{
			{ID: "prd", Title: "PRD Template", Prompt: "Help me write a product requirement document for a new platform feature."},
			{ID: "tech-debt", Title: "Technical Debt", Prompt: "How to prioritize technical debt against new feature development in my roadmap?"},
		},
	},
	{
		Name:  CategoryStakeholder,
		Label: "Stakeholder",
		Actions: []QuickAction{
			{ID: "stakeholder-update", Title: "Stakeholder Update", Prompt: "Help me write a stakeholder update on product progress and key metrics."},
			{ID: "stakeholder-map", Title: "Stakeholder Mapping", Prompt: "Create a stakeholder map and communication plan for my product launch."},
		},
	},
}

// Categories returns every category with its quick actions, in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory validates a category name. The empty string is allowed and means
// uncategorized.
func ParseCategory(name string) (Category, error) {
	if name == "" {
		return "", nil
	}
	for _, c := range categories {
		if string(c.Name) == name {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", name)
}
