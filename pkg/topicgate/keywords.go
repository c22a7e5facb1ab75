package topicgate

import "regexp"

// offTopicExact are messages rejected on sight, with or without a trailing "?".
var offTopicExact = []string{
	"cricket", "football", "soccer", "basketball", "tennis",
	"weather", "temperature", "rain", "snow",
	"hello", "hi", "hey",
	"what is usd to inr", "usd to inr", "currency", "exchange rate",
	"movie", "film", "music", "song", "game", "sport",
	"food", "recipe",
}

// offTopicPatterns catch off-topic openers even inside an established conversation.
var offTopicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(what is |tell me about )?(cricket|football|soccer|basketball|tennis|golf)`),
	regexp.MustCompile(`^(what is |current |today's )?weather`),
	regexp.MustCompile(`^(what is |current )?usd to inr`),
	regexp.MustCompile(`^(what is |tell me about )?(movie|film|music|song)`),
	regexp.MustCompile(`^(how to cook|recipe for|cooking)`),
}

// domainKeywords are matched as substrings of the normalized message.
var domainKeywords = []string{
	"product", "feature", "roadmap", "strategy", "user", "customer", "market", "competitive",
	"analytics", "metrics", "kpi", "prioritize", "sprint", "agile", "stakeholder", "requirement",
	"persona", "journey", "research", "interview", "survey", "cohort", "retention", "conversion",
	"ab test", "experiment", "hypothesis", "mvp", "launch", "go-to-market", "gtm", "pricing",
	"positioning", "segmentation", "funnel", "acquisition", "engagement", "churn", "ltv",
	"business model", "revenue", "growth", "scale", "optimization", "framework", "methodology",
	"backlog", "epic", "story", "acceptance criteria", "definition of done", "velocity",
	"burndown", "retrospective", "planning", "estimation", "scope", "timeline", "milestone",
	"deliverable", "outcome", "impact", "value", "roi", "success", "goal", "objective",
	"vision", "mission", "north star", "okr", "target", "benchmark", "baseline", "competitor",
	"analysis", "dashboard", "app", "software", "platform", "service", "startup",
	"company", "business", "industry", "build", "create", "develop", "design",
	"brand", "smartphone", "ecommerce", "saas", "b2b", "b2c", "entrepreneur",
}

// domainQuestions recognize product-management phrasing without a keyword hit.
var domainQuestions = []*regexp.Regexp{
	regexp.MustCompile(`how to (build|create|develop|design|launch|analyze|measure|track|improve|optimize|prioritize)`),
	regexp.MustCompile(`what is (product|feature|roadmap|strategy|analytics|metrics|kpi)`),
	regexp.MustCompile(`(create|build|design|analyze) (a |an )?(competitive analysis|market research|user persona|feature|product)`),
	regexp.MustCompile(`(help me|i want to|i need to) (build|create|develop|design|launch|analyze)`),
}

// filePrefixes mark attachment metadata messages that skip classification.
var filePrefixes = []string{
	"[File uploaded:",
	"[File:",
	"[Attachment:",
	"[Attached file:",
}
