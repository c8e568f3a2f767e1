package vk

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/publisher"
)

// MaxTextLength is the safe length of a wall post
const MaxTextLength = 15000

// Publisher posts to a VK community wall
type Publisher struct {
	client  *Client
	groupID string
	logger  *slog.Logger
}

// NewPublisher creates a publisher for the community. groupID may carry a leading minus.
func NewPublisher(client *Client, groupID string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		groupID: strings.TrimPrefix(strings.TrimSpace(groupID), "-"),
		logger:  logger,
	}
}

// Publish posts text with an optional image. A failed upload degrades to a text only post.
func (p *Publisher) Publish(ctx context.Context, text, image string) publisher.Result {
	var attachments []string
	if image != "" {
		attachment, err := p.uploadImage(ctx, image)
		if err != nil {
			p.logger.Warn("vk photo upload failed, posting text only", "image", image, "error", err)
		} else {
			attachments = append(attachments, attachment)
		}
	}

	postID, err := p.client.WallPost(ctx, WallPostInput{
		GroupID:     p.groupID,
		Message:     FormatText(text),
		Attachments: attachments,
	})
	if err != nil {
		p.logger.Error("vk publish failed", "error", err)
		return publisher.Failed(entity.PlatformVK, err)
	}

	id := strconv.FormatInt(postID, 10)
	p.logger.Info("vk post published", "post_id", id)

	return publisher.Result{
		Platform:    entity.PlatformVK,
		Success:     true,
		ExternalID:  id,
		ExternalURL: fmt.Sprintf("https://vk.com/wall-%s_%s", p.groupID, id),
	}
}

// TestConnection checks that the token can read the community
func (p *Publisher) TestConnection(ctx context.Context) bool {
	group, err := p.client.GetGroup(ctx, p.groupID)
	if err != nil {
		p.logger.Warn("vk connection test failed", "error", err)
		return false
	}
	p.logger.Debug("vk group access confirmed", "group", group.Name)
	return true
}

func (p *Publisher) uploadImage(ctx context.Context, image string) (string, error) {
	var (
		data []byte
		name string
		err  error
	)
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		data, err = p.client.Download(ctx, image)
		name = path.Base(image)
	} else {
		data, err = os.ReadFile(image)
		name = filepath.Base(image)
	}
	if err != nil {
		return "", err
	}
	if filepath.Ext(name) == "" {
		name += ".jpg"
	}
	return p.client.UploadWallPhoto(ctx, p.groupID, name, bytes.NewReader(data))
}

// FormatText caps text at MaxTextLength runes
func FormatText(text string) string {
	return truncate(text, MaxTextLength)
}

func truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-3]) + "..."
}
