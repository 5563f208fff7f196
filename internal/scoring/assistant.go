// internal/scoring/assistant.go
package scoring

import (
	"context"
	"strings"
)

// Assistant answers free-text questions from applicants.
type Assistant interface {
	Reply(ctx context.Context, message string) (string, error)
}

const Greeting = "Hello! I'm your AI assistant for creative funding. I can help you with application strategies, credit improvement tips, and funding opportunities. How can I assist you today?"

type QuickAction struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

var QuickActions = []QuickAction{
	{Title: "Application Tips", Description: "Get advice on improving your application", Prompt: "Give me tips to improve my funding application"},
	{Title: "Credit Improvement", Description: "Learn how to boost your credit score", Prompt: "How can I improve my credit score?"},
	{Title: "Funding Opportunities", Description: "Find relevant funding opportunities", Prompt: "What funding opportunities are available for my sector?"},
	{Title: "Success Strategies", Description: "Learn from successful applications", Prompt: "What makes a funding application successful?"},
}

const (
	applicationReply = "Here are some key tips for your funding application:\n\n" +
		"1. **Clear Project Description**: Be specific about your creative project and its impact\n" +
		"2. **Detailed Budget**: Provide a comprehensive breakdown of how funds will be used\n" +
		"3. **Market Research**: Show understanding of your target audience and competition\n" +
		"4. **Timeline**: Include a realistic project timeline with milestones\n" +
		"5. **Portfolio**: Showcase your previous work and achievements\n\n" +
		"Would you like me to elaborate on any of these points?"

	creditReply = "Here's how you can improve your credit score:\n\n" +
		"1. **Pay Bills on Time**: Set up automatic payments to never miss due dates\n" +
		"2. **Reduce Credit Utilization**: Keep usage below 30% of your credit limit\n" +
		"3. **Keep Old Accounts Open**: Length of credit history matters\n" +
		"4. **Monitor Your Report**: Check for errors and dispute them\n" +
		"5. **Diversify Credit Types**: Mix of credit cards and loans can help\n\n" +
		"Your current score of 720 is already very good! Focus on reducing utilization for the biggest impact."

	fundingReply = "Based on your creative sector, here are relevant funding opportunities:\n\n" +
		"**For Arts & Culture:**\n" +
		"- Creative Industries Development Fund\n" +
		"- Kenya Cultural Centre Grants\n" +
		"- Youth Arts Initiative Program\n\n" +
		"**For Digital Media:**\n" +
		"- Digital Innovation Fund\n" +
		"- Media Development Initiative\n" +
		"- Creative Technology Grants\n\n" +
		"Would you like specific details about any of these programs?"

	successfulReply = "Successful funding applications typically have these characteristics:\n\n" +
		"1. **Strong Value Proposition**: Clear benefit to the community\n" +
		"2. **Evidence-Based Approach**: Data supporting your project's need\n" +
		"3. **Professional Presentation**: Well-structured and error-free\n" +
		"4. **Realistic Goals**: Achievable objectives with measurable outcomes\n" +
		"5. **Strong Team**: Demonstrable skills and experience\n" +
		"6. **Sustainability Plan**: How the project continues after funding\n\n" +
		"The key is telling a compelling story while backing it up with solid facts and planning."

	defaultReply = "I'm here to help with funding applications, credit improvement, and finding opportunities. " +
		"Could you be more specific about what you'd like assistance with? " +
		"You can use the quick action buttons below for common topics."
)

type keywordRule struct {
	keywords []string
	reply    string
}

// Rules are checked in order; the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{keywords: []string{"application", "tip"}, reply: applicationReply},
	{keywords: []string{"credit", "score"}, reply: creditReply},
	{keywords: []string{"funding", "opportunit"}, reply: fundingReply},
	{keywords: []string{"successful", "strategy"}, reply: successfulReply},
}

// KeywordAssistant picks a canned reply by case-insensitive substring match.
type KeywordAssistant struct{}

func NewKeywordAssistant() *KeywordAssistant {
	return &KeywordAssistant{}
}

func (KeywordAssistant) Reply(ctx context.Context, message string) (string, error) {
	lower := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.reply, nil
			}
		}
	}
	return defaultReply, nil
}
