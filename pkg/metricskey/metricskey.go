// Package metricskey describes the metrics emitted by the service.
package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsChatTurnsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_turns_succeeded",
		Help:         "stats_chat_turns_succeeded provides total chat turns completed",
		RequiredTags: []string{"model"},
	}

	StatsChatTurnsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_turns_failed",
		Help:         "stats_chat_turns_failed provides total chat turns failed",
		RequiredTags: []string{"model"},
	}

	StatsChatTurnsCancelled = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_turns_cancelled",
		Help:         "stats_chat_turns_cancelled provides total streaming turns cancelled by the consumer",
		RequiredTags: []string{"model"},
	}

	StatsGatewayCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_gateway_calls_failed",
		Help:         "stats_gateway_calls_failed provides total failed model gateway calls",
		RequiredTags: []string{"model"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool", "kind"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls to unknown tools",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	PerfChatTurn = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chat_turn",
		Help:         "perf_chat_turn provides duration of a chat turn",
		RequiredTags: []string{"model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfGatewayCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_gateway_call",
		Help:         "perf_gateway_call provides duration of a model gateway call",
		RequiredTags: []string{"model"},
	}
)

// Metrics is a list of emitted metrics
var Metrics = []*metrics.Describe{
	&PerfChatTurn,
	&PerfGatewayCall,
	&PerfToolCall,
	&StatsChatTurnsCancelled,
	&StatsChatTurnsFailed,
	&StatsChatTurnsSucceeded,
	&StatsGatewayCallsFailed,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
