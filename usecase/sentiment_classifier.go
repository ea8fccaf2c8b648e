package usecase

import (
	"channel-insight/domain/model"
	"channel-insight/domain/repository"
)

const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// SentimentClassifier maps scorer output onto three fixed categories
type SentimentClassifier struct {
	scorer repository.ISentimentScorer
}

func NewSentimentClassifier(scorer repository.ISentimentScorer) *SentimentClassifier {
	return &SentimentClassifier{scorer: scorer}
}

func (c *SentimentClassifier) Classify(text string) model.Sentiment {
	return Categorize(c.scorer.Score(text))
}

// ClassifyAll sets the sentiment of every comment in place
func (c *SentimentClassifier) ClassifyAll(comments []model.Comment) {
	for i := range comments {
		comments[i].Sentiment = c.Classify(comments[i].Text)
	}
}

// Categorize applies the thresholds to a compound score
func Categorize(score float64) model.Sentiment {
	switch {
	case score >= PositiveThreshold:
		return model.SentimentPositive
	case score <= NegativeThreshold:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}
