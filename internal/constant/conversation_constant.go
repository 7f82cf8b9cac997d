package constant

// Command that starts the order flow; matched trimmed and case-insensitively.
const OrderCommand = "order"

const (
	ReplyEmptyMessage = "⚠️ I didn't receive any message. Please type something."

	ReplyOrderPrompt = "🛒 Please send your order in this format:\n" +
		"Name, Product, Quantity\n\n" +
		"Example: John, Maize Flour, 50"

	// %s is the parser's reason.
	ReplyMalformedOrder = "⚠️ I couldn't read that order (%s).\n" +
		"Please use the format: Name, Product, Quantity\n" +
		"Example: John, Maize Flour, 50\n\n" +
		"Type *order* to try again."

	ReplyStillProcessing = "⏳ Your previous message is still being processed. You'll get a reply shortly."

	ReplyInternalError = "⚠️ Internal Error: we couldn't process your message right now. Please try again shortly."

	AnswerUpsellSuffix = "\n\n🛒 Want to place an order? Type *order* to get started."
)
