package suggest

// Prompt pools per knowledge domain, ten per domain, plus a
// domain-independent personal pool drawn into every set.
var domainStarters = map[string][]string{
	"lunar": {
		"What does today's lunar energy mean for me?",
		"How does the current moon phase affect my emotions?",
		"What lunar rituals can enhance my spiritual practice?",
		"How can I align with the moon's cycles for manifestation?",
		"What does the new moon mean for new beginnings?",
		"How does the full moon impact my relationships?",
		"What lunar guidance do I need for this week?",
		"How can I harness lunar energy for healing?",
		"What does the waning moon teach about letting go?",
		"How do lunar eclipses affect my spiritual journey?",
	},
	"numerology": {
		"What do the numbers in my life reveal?",
		"What is my life path number and its meaning?",
		"How does my birth date influence my destiny?",
		"What numerological patterns should I pay attention to?",
		"What does the number 11:11 mean when I see it?",
		"How can numerology guide my career decisions?",
		"What do repeating numbers in my life signify?",
		"How does my name's numerical value affect me?",
		"What numerological insights can help my relationships?",
		"What does my personal year number reveal about this period?",
	},
	"crystals": {
		"Which crystals should I work with right now?",
		"How can I cleanse and charge my crystal collection?",
		"What crystal energy do I need for protection?",
		"How do I choose the right crystal for meditation?",
		"What crystals can help with emotional healing?",
		"How should I program my crystals for manifestation?",
		"What crystal combinations work best together?",
		"How do I know if a crystal is right for me?",
		"What crystals support chakra balancing?",
		"How can I create a crystal grid for my intentions?",
	},
}

var personalStarters = []string{
	"What is my spirit trying to tell me today?",
	"How can I find more balance in my daily life?",
	"What should I focus on for my personal growth?",
	"How do I reconnect with my intuition?",
	"What is blocking my path forward right now?",
	"How can I bring more gratitude into my routine?",
	"What lesson keeps repeating in my life?",
	"How do I release what no longer serves me?",
	"What intention should I set for this season?",
	"How can I be more present with the people I love?",
}
