package tool

import (
	"context"
	"fmt"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
	notionx "github.com/tzuchiao/tutorgraph/pkg/notion"
)

// NotionPublisher adapts the Notion client to the NotePublisher contract,
// rendering learning records as one page per record.
type NotionPublisher struct {
	client *notionx.Client
}

func NewNotionPublisher(client *notionx.Client) (*NotionPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: notion client is required", contractx.ErrValidation)
	}
	return &NotionPublisher{client: client}, nil
}

func (p *NotionPublisher) Publish(ctx context.Context, records []contractx.LearningRecord) (contractx.NoteRef, error) {
	if len(records) == 0 {
		return contractx.NoteRef{}, fmt.Errorf("%w: no records to publish", contractx.ErrValidation)
	}

	var firstURL string
	for i, rec := range records {
		page := notionx.Page{
			Title: fmt.Sprintf("%s-學習記錄-%d", rec.CreatedAt.Format("2006-01-02"), i+1),
			Sections: []notionx.Section{
				{Heading: "你學習的內容", Body: rec.YouLearned},
				{Heading: "你的產出", Body: rec.YourOutput},
				{Heading: "回饋", Body: rec.Feedback},
				{Heading: "課後思考的問題", Body: rec.AfterThoughtQuestions},
				{Heading: "時間", Body: rec.CreatedAt.Format("2006-01-02 15:04:05")},
			},
		}

		url, err := p.client.CreatePage(ctx, page)
		if err != nil {
			return contractx.NoteRef{}, err
		}
		if firstURL == "" {
			firstURL = url
		}
	}

	return contractx.NoteRef{Success: true, URL: firstURL}, nil
}
