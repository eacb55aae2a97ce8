package anthropic

// BuildCachedSystemBlocks returns a single system block with a prompt-cache
// breakpoint. Every research stage shares the same system prompt, so one
// cached prefix serves all stages of a report.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "5m",
			},
		},
	}
}
