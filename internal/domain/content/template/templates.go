package template

import "github.com/vadim/poolsmm/internal/domain/post/entity"

// Built-in post templates per category. Placeholders are text/template
// fields of the data map.
var builtinTemplates = map[entity.Category][]string{
	entity.CategoryProject: {
		`🏊 Новый проект завершён!

{{.description}}

📐 Размер: {{.size}}
✨ Тип: {{.pool_type}}
🎯 Особенности: {{.features}}

Хотите такой же? Напишите нам! 📱

{{.hashtags}}`,

		`💎 Мы создали ещё один бассейн мечты!

{{.description}}

Параметры:
• Тип: {{.pool_type}}
• Размеры: {{.size}}
• Фишки: {{.features}}

📍 {{.location}}

{{.hashtags}}`,

		`🌊 Свежий проект от нашей команды!

{{.pool_type}} бассейн {{.size}} — это не просто вода, это стиль жизни!

{{.features}}

Готовы обсудить ваш проект? 🤝

{{.hashtags}}`,
	},

	entity.CategoryTip: {
		`💡 Совет дня: {{.title}}

{{.content}}

Сохраняйте себе! 📌

{{.hashtags}}`,

		`🔧 Полезная информация для владельцев бассейнов

{{.title}}

{{.content}}

Делитесь с друзьями! 👆

{{.hashtags}}`,
	},

	entity.CategoryPromo: {
		`🎁 АКЦИЯ! {{.title}}

{{.content}}

⏰ Предложение ограничено!
📞 Звоните прямо сейчас!

{{.hashtags}}`,

		`🔥 СПЕЦИАЛЬНОЕ ПРЕДЛОЖЕНИЕ

{{.title}}

{{.content}}

Не упустите шанс! 💪

{{.hashtags}}`,
	},

	entity.CategoryCase: {
		`📸 История успеха: {{.title}}

{{.content}}

Спасибо за доверие! 🙏

{{.hashtags}}`,
	},

	entity.CategoryEdu: {
		`📚 Полезно знать: {{.title}}

{{.content}}

Подписывайтесь, чтобы не пропустить! 🔔

{{.hashtags}}`,
	},

	entity.CategoryNews: {
		`📰 Новости компании!

{{.title}}

{{.content}}

{{.hashtags}}`,
	},
}

var builtinHashtags = map[entity.Category][]string{
	entity.CategoryProject: {
		"#бассейн", "#строительствобассейнов", "#бассейнподключ",
		"#бассейнмечты", "#бетонныйбассейн", "#композитныйбассейн",
		"#бассейннадаче", "#ландшафтныйдизайн", "#загородныйдом",
	},
	entity.CategoryTip: {
		"#уходзабассейном", "#бассейн", "#советы", "#лайфхак",
		"#полезныесоветы", "#бассейнуход", "#чистаявода",
	},
	entity.CategoryPromo: {
		"#акция", "#скидка", "#бассейн", "#специальноепредложение",
		"#выгодно", "#бассейнподключ",
	},
	entity.CategoryCase: {
		"#кейс", "#бассейн", "#отзыв", "#довольныйклиент",
		"#строительствобассейнов",
	},
	entity.CategoryEdu: {
		"#образование", "#бассейн", "#полезнознать", "#интересныефакты",
	},
	entity.CategoryNews: {
		"#новости", "#бассейн", "#компания",
	},
}

// defaultFields fill missing or empty template data
var defaultFields = map[string]string{
	"title":       "Новый пост",
	"description": "",
	"content":     "",
	"pool_type":   "бассейн",
	"size":        "",
	"features":    "",
	"location":    "Москва и МО",
}

// Tip is a built-in pool care tip
type Tip struct {
	Title   string
	Content string
}

// CareTips are the built-in tips used for tip batches
var CareTips = []Tip{
	{"Чистка фильтра", "Регулярно проверяйте и чистите фильтр бассейна. Рекомендуется делать это каждые 1-2 недели."},
	{"Проверка pH", "Оптимальный уровень pH воды — 7.2-7.6. Проверяйте минимум 2 раза в неделю."},
	{"Зимняя консервация", "Перед зимой слейте воду ниже форсунок и добавьте зимнее средство."},
	{"Обратная промывка", "Делайте обратную промывку фильтра когда давление повышается на 8-10 PSI."},
	{"Уровень хлора", "Поддерживайте уровень хлора 1-3 ppm для безопасного купания."},
	{"Чистка скиммера", "Очищайте корзину скиммера каждые 3-4 дня."},
	{"Проверка насоса", "Регулярно осматривайте насос на предмет утечек и шумов."},
}
