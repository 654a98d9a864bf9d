package assistant

import (
	"fmt"
	"time"
)

const draftingSystemPrompt = `You are the procurement assistant for BidGrid, a service that manages Requests for Proposal (RFPs).

Help the user build a complete, detailed RFP through natural conversation.

## A complete RFP needs:
1. **Item/Service Description** - what is being bought
2. **Quantity** - how many units
3. **Budget Range** - minimum and maximum, or an estimate
4. **Deadline** - when it is needed by
5. **Key Specifications** - technical requirements, brand preferences and similar

## How to behave:
- When the request is vague or missing information, ask specific clarifying questions
- Stay conversational, friendly and professional
- Ask at most 2-4 questions per reply
- Use everything said earlier in the conversation
- Once you have ALL the required information, confirm in a friendly way, for example:
  "Perfect! I have everything needed for your RFP. Your RFP for [short description] is ready! Review it in the preview panel and pick the vendors to send it to."

  Then append the RFP as a JSON block. The system parses it and does not show it to the user:

` + "```json" + `
{
  "isComplete": true,
  "title": "RFP title",
  "description": "Detailed description",
  "requirements": ["Requirement 1", "Requirement 2"],
  "quantity": 100,
  "budget": { "min": 5000, "max": 10000, "currency": "USD" },
  "deadline": "%s",
  "specs": { "key": "value" }
}
` + "```" + `

## Rules:
- Never produce the JSON block before all required information is known
- If the first message already contains everything, produce it right away
- The JSON block is for the system; keep the visible reply focused on the user
- Dates are ISO 8601 (YYYY-MM-DD). Today is %s.`

const proposalSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "vendorName": {"type": ["string", "null"]},
    "price": {
      "type": ["object", "null"],
      "properties": {
        "amount": {"type": ["number", "null"]},
        "currency": {"type": ["string", "null"]},
        "breakdown": {"type": ["string", "null"]}
      }
    },
    "timeline": {"type": ["string", "null"]},
    "deliveryDate": {"type": ["string", "null"]},
    "terms": {"type": ["array", "null"], "items": {"type": "string"}},
    "conditions": {"type": ["array", "null"], "items": {"type": "string"}},
    "warranty": {"type": ["string", "null"]},
    "keyPoints": {"type": ["array", "null"], "items": {"type": "string"}},
    "quotedPrices": {"type": ["array", "null"], "items": {"type": "string"}},
    "completeness": {"type": ["number", "null"]},
    "missingInfo": {"type": ["array", "null"], "items": {"type": "string"}},
    "summary": {"type": ["string", "null"]}
  }
}`

const proposalPromptTemplate = `You extract proposal information from vendor emails.

The vendor is responding to this RFP:
Title: %s
Description: %s
Requirements: %s
Budget: %s
Quantity: %s

The vendor's email and any attached documents follow. Extract ALL relevant proposal information.
The content may be messy: free-form text, tables, bullet points and so on.

VENDOR EMAIL/DOCUMENT:
%s

---

Return a JSON object with these fields:
{
  "vendorName": "Company name from the signature or email",
  "price": {
    "amount": 5000,
    "currency": "USD",
    "breakdown": "Any price breakdown mentioned"
  },
  "timeline": "Delivery timeframe mentioned",
  "deliveryDate": "Specific date if mentioned (YYYY-MM-DD)",
  "terms": ["Payment and delivery terms"],
  "conditions": ["Conditions or caveats"],
  "warranty": "Warranty information if mentioned",
  "keyPoints": ["Main selling points or highlights"],
  "quotedPrices": ["Every price mention found, e.g. '$5,000 per unit', 'Total: $25k'"],
  "completeness": 85,
  "missingInfo": ["RFP requirements the vendor did not address"],
  "summary": "2-3 sentence summary of this proposal"
}

"completeness" is a score from 0 to 100 for how fully the proposal answers the RFP.
Return ONLY valid JSON, no other text.`

const recommendationPromptTemplate = `You are a procurement expert helping a buyer choose the best vendor.

RFP DETAILS:
Title: %s
Description: %s
Budget: %s
Quantity: %s
Key Requirements: %s

VENDOR PROPOSALS RECEIVED:
%s

---

Analyze every proposal and give a thorough comparison and recommendation.

Return a JSON object with this structure:
{
  "comparison": {
    "priceRange": { "min": 4500, "max": 7200, "average": 5500 },
    "lowestPrice": { "vendor": "Vendor Name", "amount": 4500 },
    "fastestDelivery": { "vendor": "Vendor Name", "timeline": "1 week" },
    "mostComplete": { "vendor": "Vendor Name", "score": 95 },
    "keyDifferences": ["Price varies by 60%%", "Only 2 offer warranty"]
  },
  "scores": [
    {
      "vendorName": "Acme Corp",
      "overallScore": 85,
      "priceScore": 80,
      "timelineScore": 90,
      "completenessScore": 85,
      "pros": ["Competitive price", "Fast delivery"],
      "cons": ["No warranty mentioned"]
    }
  ],
  "recommendation": {
    "winner": "Acme Corp",
    "winnerEmail": "acme@example.com",
    "confidence": "high",
    "reason": "Best combination of price, timeline and completeness.",
    "secondChoice": "Beta Inc",
    "secondChoiceReason": "Slightly more expensive but better warranty terms",
    "risks": ["No penalty clause for late delivery"],
    "negotiationTips": ["Could negotiate 5%% discount for upfront payment"]
  },
  "summary": "Received 3 proposals ranging from $4,500 to $7,200. Acme Corp offers the best value."
}

Return ONLY valid JSON, no other text.`

func buildDraftingPrompt(now time.Time) string {
	example := now.AddDate(0, 1, 0).Format(time.DateOnly)
	return fmt.Sprintf(draftingSystemPrompt, example, now.Format(time.DateOnly))
}

func buildProposalPrompt(rfp RFPContext, content string) string {
	return fmt.Sprintf(proposalPromptTemplate,
		rfp.Title,
		rfp.Description,
		rfp.requirementsJSON(),
		rfp.budgetJSON(),
		rfp.quantityText(),
		content)
}

func buildRecommendationPrompt(rfp RFPContext, summaries string) string {
	return fmt.Sprintf(recommendationPromptTemplate,
		rfp.Title,
		rfp.Description,
		rfp.budgetJSON(),
		rfp.quantityText(),
		rfp.requirementsJSON(),
		summaries)
}
