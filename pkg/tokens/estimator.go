package tokens

// charsPerToken is the fixed character-to-token ratio. English text averages
// roughly 4 characters per token, which keeps running usage within a few
// percent of real counts. Good enough for threshold comparison, not billing.
const charsPerToken = 4

// EstimateTokens estimates the token count of text as ceil(len(text)/4).
// Empty text estimates to zero.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// EstimateAll sums the token estimates for each text in order.
func EstimateAll(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += EstimateTokens(t)
	}
	return total
}
