package service

import (
	"fmt"
	"strings"

	"astute/internal/domain"
)

const generatePrompt = `You are answering from your own internal knowledge only. Do not assume
access to any external source.

Write up to %d short factual passages that help answer the question below.
One passage per line, numbered. Each passage must be a self-contained
statement, verifiable on its own.

If you do not know enough to write a reliable passage, write UNKNOWN on that
line instead. Never guess.

Question: %s

Passages:`

const consolidatePrompt = `You are consolidating knowledge passages gathered to answer a question.
Each passage below is tagged with its index and provenance: [INTERNAL] came
from a language model's own knowledge, [EXTERNAL] from document retrieval.

Group the passages so that every group contains only mutually consistent
claims. Write one consensus statement per group summarizing what its members
agree on. A passage that fits no group goes in a group by itself. If two
groups directly contradict each other, keep both and record the contradiction;
never merge conflicting claims and never drop them.

Question: %s

Passages:
%s

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"consensus":"Paris is the capital of France","members":[0,2],"conflicts_with":[1]}]

Every passage index must appear in exactly one group's members.`

const finalizePrompt = `You are producing the final answer to a question from consolidated
knowledge clusters. Each cluster below has an index, a consensus statement,
and counts of supporting passages by provenance.

Choose or synthesize the best-supported answer. Score your confidence between
0.0 and 1.0: corroboration across clusters and across provenances raises it,
unresolved contradictions lower it. If contradicting clusters have comparable
support, say so in the answer rather than silently picking a side. List the
indices of the clusters your answer relies on.

Question: %s

Clusters:
%s

Respond ONLY with JSON. No markdown, no explanation. Example:
{"answer":"Paris","confidence":0.9,"citations":[0]}`

const directPrompt = `Answer this question: %s`

func buildGeneratePrompt(question string, maxPassages int) string {
	return fmt.Sprintf(generatePrompt, maxPassages, question)
}

func buildConsolidatePrompt(question string, passages []domain.Passage) string {
	var sb strings.Builder
	for _, p := range passages {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", p.Index, p.Provenance.Tag(), p.Content))
	}
	return fmt.Sprintf(consolidatePrompt, question, strings.TrimRight(sb.String(), "\n"))
}

func buildFinalizePrompt(question string, clusters []domain.KnowledgeCluster) string {
	var sb strings.Builder
	for i, c := range clusters {
		internal, external := c.ProvenanceCounts()
		sb.WriteString(fmt.Sprintf("%d. %s [internal: %d, external: %d]", i, c.Consensus, internal, external))
		if len(c.Conflicts) > 0 {
			sb.WriteString(fmt.Sprintf(" [contradicts clusters %v]", c.Conflicts))
		}
		sb.WriteString("\n")
	}
	return fmt.Sprintf(finalizePrompt, question, strings.TrimRight(sb.String(), "\n"))
}

// stripFences removes a wrapping markdown code fence that models sometimes
// add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
