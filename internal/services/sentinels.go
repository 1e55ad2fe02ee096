package services

// Fixed degraded-output strings returned in place of failed or empty AI
// results. Clients rely on these exact values, so they never change between
// releases.
const (
	// DegradedSummary replaces the AI summary when summarization fails.
	DegradedSummary = "Не удалось создать резюме"

	// NoAnswerFound is returned when the tenant's knowledge base has no
	// entries; generation is skipped entirely.
	NoAnswerFound = "К сожалению, подходящего ответа в базе знаний не найдено."

	// SuggestionFailed replaces the suggested answer when embedding,
	// retrieval or generation fails.
	SuggestionFailed = "Ошибка при поиске ответа в базе знаний."

	// NothingNew is the regeneration result when the accumulator is empty.
	NothingNew = "Нет новых сообщений для анализа"

	// NoInformationPhrase is what the model is instructed to answer when
	// the retrieved context does not contain the answer.
	NoInformationPhrase = "К сожалению, у меня нет информации по этому вопросу"
)

// Farewell message emitted through the normal message path when a ticket is
// closed.
const (
	FarewellSender = "Служба поддержки"
	FarewellText   = "Спасибо за обращение! Если у вас возникнут ещё вопросы, мы всегда рады помочь. До свидания! 😊"
)
