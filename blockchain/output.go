package blockchain

import (
	"encoding/json"
	"strings"
)

// PublishOutput is what the pipeline needs from a publish run.
type PublishOutput struct {
	TransactionHash string
	Sender          string
}

type publishResult struct {
	Result *struct {
		TransactionHash string `json:"transaction_hash"`
		Sender          string `json:"sender"`
	} `json:"Result"`
}

// ParsePublishOutput finds the JSON result object embedded in the CLI's log stream.
//
// Every '{' is tried as the start of a JSON value, so log lines around the object and
// braces inside them do not matter. The first object with a transaction hash wins.
func ParsePublishOutput(stdout string) (PublishOutput, bool) {
	for offset := 0; offset < len(stdout); {
		start := strings.IndexByte(stdout[offset:], '{')
		if start < 0 {
			break
		}
		start += offset

		var result publishResult
		dec := json.NewDecoder(strings.NewReader(stdout[start:]))
		if err := dec.Decode(&result); err == nil && result.Result != nil && result.Result.TransactionHash != "" {
			return PublishOutput{
				TransactionHash: result.Result.TransactionHash,
				Sender:          result.Result.Sender,
			}, true
		}

		offset = start + 1
	}

	return PublishOutput{}, false
}
