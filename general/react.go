package general

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Lewis121025/Generate-Agent/internal/util"
)

var (
	actionRe      = regexp.MustCompile(`(?m)Action:\s*(.+)$`)
	actionInputRe = regexp.MustCompile(`(?s)Action Input:\s*(.+)`)
	thoughtRe     = regexp.MustCompile(`(?m)Thought:\s*(.+)$`)
)

// reactStep is the parsed shape of one model response in the loop.
type reactStep struct {
	Thought     string
	Action      string
	ActionInput map[string]any
	FinalAnswer string
	HasAction   bool
	HasAnswer   bool
}

// parseReactStep tolerantly parses a ReAct response. A Final Answer wins over
// an action in the same response. Malformed action input is coerced to a
// single-field payload rather than aborting.
func parseReactStep(response string) reactStep {
	step := reactStep{}

	if m := thoughtRe.FindStringSubmatch(response); m != nil {
		step.Thought = strings.TrimSpace(m[1])
	}

	if idx := strings.Index(response, "Final Answer:"); idx >= 0 {
		step.HasAnswer = true
		step.FinalAnswer = strings.TrimSpace(response[idx+len("Final Answer:"):])
		return step
	}

	actionMatch := actionRe.FindStringSubmatch(response)
	inputMatch := actionInputRe.FindStringSubmatch(response)
	if actionMatch == nil || inputMatch == nil {
		return step
	}
	step.HasAction = true
	step.Action = strings.TrimSpace(actionMatch[1])
	step.ActionInput = util.CoerceActionInput(strings.TrimSpace(inputMatch[1]))
	return step
}

// reactSystemPrompt advertises the available tools and the expected format.
func reactSystemPrompt(toolDescriptions string) string {
	return fmt.Sprintf(
		"You are a helpful AI assistant with access to the following tools:\n"+
			"%s\n"+
			"Use the following format:\n"+
			"Question: the input question you must answer\n"+
			"Thought: you should always think about what to do\n"+
			"Action: the action to take, should be one of the tool names\n"+
			"Action Input: the input to the action as a valid JSON string matching the tool's parameter schema\n"+
			"Observation: the result of the action\n"+
			"... (this Thought/Action/Action Input/Observation can repeat N times)\n"+
			"Thought: I now know the final answer\n"+
			"Final Answer: the final answer to the original input question\n\n"+
			"Begin!",
		toolDescriptions)
}
