package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	contentsvc "github.com/vadim/poolsmm/internal/domain/content/service"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

const maxTips = 10

func (b *Bot) cmdAI(ctx context.Context, req *Request) {
	category := entity.Category(strings.ToLower(req.Arg(0)))
	if !category.IsValid() {
		names := make([]string, 0, len(entity.Categories()))
		for _, c := range entity.Categories() {
			names = append(names, fmt.Sprintf("<code>%s</code> %s", c, c.Label()))
		}
		b.reply(ctx, req.Message, "Использование: <code>/ai &lt;категория&gt; [детали]</code>\n\nКатегории:\n"+strings.Join(names, "\n"))
		return
	}
	details := strings.TrimSpace(strings.TrimPrefix(req.Raw, req.Arg(0)))

	b.reply(ctx, req.Message, "🤖 Генерирую…")
	post, err := b.posts.GenerateDraft(ctx, req.User.Actor(), category, details, true)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "ai", err)
		return
	}

	source := "🤖 Текст сгенерирован ИИ"
	if !post.AIGenerated {
		source = "📄 ИИ недоступен, использован шаблон"
	}
	b.reply(ctx, req.Message, fmt.Sprintf("%s\n\n%s\n\nОтправить на модерацию: /submit %s", source, b.formatPost(post), post.ID))
}

func (b *Bot) cmdImprove(ctx context.Context, req *Request) {
	if req.Raw == "" {
		b.sendUsage(ctx, req.Message, "ai_improve")
		return
	}

	improved, err := b.content.ImproveText(ctx, req.Raw)
	if err != nil {
		b.sendAIError(ctx, req, "ai_improve", err)
		return
	}
	b.reply(ctx, req.Message, "✨ <b>Улучшенный текст</b>\n\n"+escape(improved))
}

func (b *Bot) cmdHashtags(ctx context.Context, req *Request) {
	if req.Raw == "" {
		b.sendUsage(ctx, req.Message, "ai_hashtags")
		return
	}

	tags, err := b.content.GenerateHashtags(ctx, req.Raw, 10)
	if err != nil {
		b.sendAIError(ctx, req, "ai_hashtags", err)
		return
	}
	b.reply(ctx, req.Message, "#️⃣ "+escape(strings.Join(tags, " ")))
}

func (b *Bot) sendAIError(ctx context.Context, req *Request, op string, err error) {
	if contentsvc.IsFallbackError(err) {
		b.sendError(ctx, req.Message, "ИИ не настроен или не вернул ответ")
		return
	}
	b.logger.Error("ai request failed", "op", op, "user_id", req.Message.From.ID, "error", err)
	b.sendError(ctx, req.Message, "Не удалось получить ответ ИИ, попробуйте позже")
}

func (b *Bot) cmdTips(ctx context.Context, req *Request) {
	count := 3
	if arg := req.Arg(0); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			b.sendUsage(ctx, req.Message, "tips")
			return
		}
		count = min(n, maxTips)
	}

	tips := b.content.GenerateTipsBatch(ctx, count, true)
	var sb strings.Builder
	sb.WriteString("<b>💡 Советы</b>")
	for i, tip := range tips {
		fmt.Fprintf(&sb, "\n\n<b>%d.</b> %s", i+1, escape(truncate(tip.Text, 600)))
	}
	b.reply(ctx, req.Message, sb.String())
}
