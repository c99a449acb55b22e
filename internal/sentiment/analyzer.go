package sentiment

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

// Result is the derived signal for a single review.
type Result struct {
	Sentiment models.Sentiment `json:"sentiment"`
	Score     float64          `json:"sentiment_score"`
	Topics    []string         `json:"topics"`
	Keywords  []string         `json:"keywords"`
}

// topicOrder fixes the iteration order of the topic dictionary so matched
// topics come out deterministically.
var topicOrder = []string{
	"service", "quality", "price", "cleanliness", "food", "atmosphere", "location", "speed",
}

// topicKeywords is process-wide immutable configuration; never mutated after
// init, so no synchronization is needed.
var topicKeywords = map[string][]string{
	"service":     {"service", "staff", "waiter", "waitress", "server", "employee", "manager", "friendly", "rude", "helpful", "attentive"},
	"quality":     {"quality", "excellent", "amazing", "perfect", "defective", "broken", "durable", "well made", "poorly made"},
	"price":       {"price", "expensive", "cheap", "affordable", "value", "overpriced", "cost", "worth", "bargain"},
	"cleanliness": {"clean", "dirty", "spotless", "filthy", "hygiene", "sanitary", "tidy", "mess"},
	"food":        {"food", "meal", "dish", "taste", "delicious", "flavor", "menu", "fresh", "stale", "bland"},
	"atmosphere":  {"atmosphere", "ambiance", "decor", "music", "cozy", "noisy", "vibe", "comfortable", "crowded"},
	"location":    {"location", "parking", "convenient", "accessible", "neighborhood", "nearby", "central"},
	"speed":       {"fast", "slow", "quick", "wait", "waiting", "prompt", "delay", "speedy"},
}

var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "have": {}, "from": {}, "they": {},
	"were": {}, "been": {}, "their": {}, "would": {}, "there": {}, "what": {},
	"when": {}, "your": {}, "will": {}, "very": {}, "just": {}, "about": {},
	"really": {}, "because": {}, "which": {}, "could": {}, "them": {},
	"then": {}, "than": {}, "some": {}, "also": {}, "after": {}, "before": {},
	"over": {}, "only": {}, "much": {}, "more": {}, "most": {}, "such": {},
	"even": {}, "here": {}, "where": {}, "while": {}, "these": {}, "those": {},
	"again": {}, "back": {}, "being": {}, "other": {}, "into": {}, "made": {},
	"make": {}, "does": {}, "doing": {}, "went": {}, "came": {}, "still": {},
}

const maxKeywords = 10

// Analyze derives sentiment, topics and keywords for one review. The label
// and score come from the rating alone; the text only feeds topics and
// keywords. Pure function, safe for concurrent use.
func Analyze(content string, rating int) Result {
	result := Result{
		Topics:   extractTopics(content),
		Keywords: extractKeywords(content),
	}

	switch {
	case rating >= 4:
		result.Sentiment = models.SentimentPositive
		result.Score = 0.5 + float64(rating-4)*0.5
	case rating == 3:
		result.Sentiment = models.SentimentNeutral
		result.Score = 0
	default:
		result.Sentiment = models.SentimentNegative
		result.Score = -1.0 + float64(rating-1)*0.5
	}

	return result
}

func extractTopics(content string) []string {
	lowered := strings.ToLower(content)

	var topics []string
	for _, topic := range topicOrder {
		for _, keyword := range topicKeywords[topic] {
			if strings.Contains(lowered, keyword) {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

func extractKeywords(content string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, strings.ToLower(content))

	counts := make(map[string]int)
	var order []string
	for _, token := range strings.Fields(cleaned) {
		if len(token) <= 3 {
			continue
		}
		if _, skip := stopWords[token]; skip {
			continue
		}
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	// Stable sort keeps first-seen order for equal frequencies.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

const batchWorkers = 8

// AnalyzeBatch runs Analyze over each review independently with a bounded
// fan-out. Results are indexed like the input; no ordering dependency exists
// between items.
func AnalyzeBatch(ctx context.Context, reviews []models.Review) []Result {
	results := make([]Result, len(reviews))

	sem := make(chan struct{}, batchWorkers)
	var wg sync.WaitGroup
	for i := range reviews {
		select {
		case <-ctx.Done():
			wg.Wait()
			return results
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = Analyze(reviews[i].Content, reviews[i].Rating)
		}(i)
	}
	wg.Wait()
	return results
}

// Analyzer attaches derived sentiment fields to stored reviews.
type Analyzer struct {
	reviews store.ReviewStore
}

// NewAnalyzer creates an analyzer backed by the given review store.
func NewAnalyzer(reviews store.ReviewStore) *Analyzer {
	return &Analyzer{reviews: reviews}
}

// UpdateReviewSentiment re-analyzes one review and persists the four derived
// fields. Returns NotFound when the id does not resolve.
func (a *Analyzer) UpdateReviewSentiment(ctx context.Context, reviewID string) (*models.Review, error) {
	review, err := a.reviews.FindOne(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	result := Analyze(review.Content, review.Rating)
	logrus.Debugf("Analyzed review %s: sentiment=%s topics=%d", reviewID, result.Sentiment, len(result.Topics))

	topics := result.Topics
	if topics == nil {
		topics = []string{}
	}
	keywords := result.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return a.reviews.Update(ctx, reviewID, models.ReviewUpdate{
		Sentiment:      &result.Sentiment,
		SentimentScore: &result.Score,
		Topics:         topics,
		Keywords:       keywords,
	})
}
