package generator

// Placeholder is replaced with the micro-question's keywords joined by " and ".
const Placeholder = "{keywords}"

// DefaultChannel is the template set used for channels without their own set.
const DefaultChannel = "default"

// TemplateSets maps a question channel to the prompt templates used for its
// micro-questions. Templates are picked round-robin by group index.
type TemplateSets map[string][]string

// DefaultTemplates returns a fresh copy of the curated template sets.
func DefaultTemplates() TemplateSets {
	return TemplateSets{
		"system-design": {
			"How would {keywords} fit into the overall design?",
			"What trade-offs come with {keywords} at scale?",
			"How would you monitor {keywords} in production?",
			"What fails first around {keywords} under heavy load?",
			"How would you explain the role of {keywords} to a new teammate?",
		},
		"behavioral": {
			"Tell me about a time {keywords} shaped the outcome.",
			"How did you handle {keywords} in that situation?",
			"What did you learn about {keywords}?",
			"How would you approach {keywords} differently next time?",
		},
		"devops": {
			"How do {keywords} fit into a delivery pipeline?",
			"What tooling would you use for {keywords}?",
			"How would you automate {keywords}?",
			"What goes wrong with {keywords} during a rollout?",
		},
		"sre": {
			"How do {keywords} relate to reliability targets?",
			"How would you alert on {keywords}?",
			"Walk through an incident involving {keywords}.",
			"How would you reduce toil around {keywords}?",
		},
		DefaultChannel: {
			"Can you explain {keywords}?",
			"Why do {keywords} matter here?",
			"How would you use {keywords} in practice?",
			"What are the common pitfalls with {keywords}?",
			"How do {keywords} relate to each other?",
			"Give an example involving {keywords}.",
		},
	}
}

// merge returns a copy of s with every non-empty set in override replacing
// the set of the same channel.
func (s TemplateSets) merge(override TemplateSets) TemplateSets {
	out := make(TemplateSets, len(s)+len(override))
	for ch, set := range s {
		out[ch] = append([]string(nil), set...)
	}
	for ch, set := range override {
		if len(set) == 0 {
			continue
		}
		out[ch] = append([]string(nil), set...)
	}
	return out
}

// forChannel returns the template set for channel, falling back to the
// default set.
func (s TemplateSets) forChannel(channel string) []string {
	if set, ok := s[channel]; ok && len(set) > 0 {
		return set
	}
	return s[DefaultChannel]
}
