// Package evaluation measures retrieval quality against a dataset of
// questions with known relevant chunks, and runs parameter grid
// searches over the chunking configuration. Answer-quality judging
// (faithfulness, relevancy) is a collaborator behind the Judge port;
// only a lexical reference implementation ships here.
package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"coachrag/internal/domain"
)

// RelevantChunk is one ground-truth chunk for a question.
type RelevantChunk struct {
	Text     string `json:"text"`
	Metadata struct {
		TranscriptID string `json:"transcript_id"`
	} `json:"metadata"`
}

// Question pairs a query with its verified answer and relevant chunks.
type Question struct {
	Question       string          `json:"question"`
	GroundTruth    string          `json:"ground_truth"`
	RelevantChunks []RelevantChunk `json:"relevant_chunks"`
}

// Dataset is an evaluation dataset loaded from JSON.
type Dataset struct {
	Questions []Question        `json:"questions"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// LoadDataset reads a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading eval dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decoding eval dataset: %w", err)
	}
	if len(ds.Questions) == 0 {
		return nil, fmt.Errorf("eval dataset %s has no questions", path)
	}
	return &ds, nil
}

// Retriever is the subset of the RAG service the harness exercises.
type Retriever interface {
	Query(query string, topK int) ([]domain.SearchResult, error)
}

// RetrievalReport aggregates precision@k and recall@k over a dataset.
type RetrievalReport struct {
	K         int
	Questions int
	Precision float64
	Recall    float64
}

// EvaluateRetrieval runs every dataset question through the retriever
// and scores the results against the ground-truth chunks. A retrieved
// chunk counts as relevant when its text substantially overlaps one of
// the question's relevant chunks.
func EvaluateRetrieval(r Retriever, ds *Dataset, k int) (RetrievalReport, error) {
	if k <= 0 {
		k = 4
	}
	report := RetrievalReport{K: k, Questions: len(ds.Questions)}
	var precisionSum, recallSum float64
	for _, q := range ds.Questions {
		results, err := r.Query(q.Question, k)
		if err != nil {
			return report, fmt.Errorf("query %q: %w", q.Question, err)
		}
		matchedRelevant := make([]bool, len(q.RelevantChunks))
		relevantRetrieved := 0
		for _, res := range results {
			hit := false
			for i, rel := range q.RelevantChunks {
				if chunksOverlap(res.Chunk.Content, rel.Text) {
					matchedRelevant[i] = true
					hit = true
				}
			}
			if hit {
				relevantRetrieved++
			}
		}
		if len(results) > 0 {
			precisionSum += float64(relevantRetrieved) / float64(len(results))
		}
		if len(q.RelevantChunks) > 0 {
			recalled := 0
			for _, m := range matchedRelevant {
				if m {
					recalled++
				}
			}
			recallSum += float64(recalled) / float64(len(q.RelevantChunks))
		}
	}
	report.Precision = precisionSum / float64(len(ds.Questions))
	report.Recall = recallSum / float64(len(ds.Questions))
	return report, nil
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// chunksOverlap reports whether two texts share most of the smaller
// one's vocabulary. Chunk boundaries shift between chunking runs, so
// exact equality would under-count genuinely relevant retrievals.
func chunksOverlap(a, b string) bool {
	const threshold = 0.5
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return false
	}
	smaller, larger := sa, sb
	if len(sb) < len(sa) {
		smaller, larger = sb, sa
	}
	inter := 0
	for t := range smaller {
		if _, ok := larger[t]; ok {
			inter++
		}
	}
	return float64(inter)/float64(len(smaller)) >= threshold
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// Judge scores a generated answer against its question and retrieved
// contexts. Metric internals (LLM-based faithfulness, relevancy) live
// in the collaborator; scores are keyed by metric name in [0, 1].
type Judge interface {
	Score(question, answer string, contexts []string) (map[string]float64, error)
}

// LexicalJudge is an offline reference Judge based on token overlap.
type LexicalJudge struct{}

// Score returns contextual_relevancy (question terms covered by the
// contexts) and faithfulness (answer terms grounded in the contexts).
func (LexicalJudge) Score(question, answer string, contexts []string) (map[string]float64, error) {
	ctx := tokenSet(strings.Join(contexts, " "))
	return map[string]float64{
		"contextual_relevancy": coverage(tokenSet(question), ctx),
		"faithfulness":         coverage(tokenSet(answer), ctx),
	}, nil
}

// EvaluateAnswers scores each question's ground-truth answer against
// the contexts the retriever actually returns, then averages every
// metric the judge reports over the dataset.
func EvaluateAnswers(r Retriever, judge Judge, ds *Dataset, k int) (map[string]float64, error) {
	if k <= 0 {
		k = 4
	}
	sums := make(map[string]float64)
	for _, q := range ds.Questions {
		results, err := r.Query(q.Question, k)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q.Question, err)
		}
		contexts := make([]string, 0, len(results))
		for _, res := range results {
			contexts = append(contexts, res.Chunk.Content)
		}
		scores, err := judge.Score(q.Question, q.GroundTruth, contexts)
		if err != nil {
			return nil, fmt.Errorf("judge %q: %w", q.Question, err)
		}
		for metric, v := range scores {
			sums[metric] += v
		}
	}
	n := float64(len(ds.Questions))
	for metric := range sums {
		sums[metric] /= n
	}
	return sums, nil
}

func coverage(terms, within map[string]struct{}) float64 {
	if len(terms) == 0 {
		return 0
	}
	hit := 0
	for t := range terms {
		if _, ok := within[t]; ok {
			hit++
		}
	}
	return math.Round(float64(hit)/float64(len(terms))*1000) / 1000
}
