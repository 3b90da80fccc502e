package llm

type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type Response struct {
	Content      string
	StopReason   string
	InputTokens  int
	OutputTokens int
}
