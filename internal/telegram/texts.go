package telegram

// UI texts in English
const (
	welcomeText = "Welcome Bro , Just Add me to your channel / Group and i will accept the join requests For you!"

	textUnauthorized   = "❌ Unauthorized."
	textUsage          = "⚠️ Usage: reply to a message with /broadcast OR use /broadcast <text>"
	textBusy           = "⏳ The broadcast queue is full. Try again once a queued broadcast has finished."
	textRegisterFailed = "Registration error. Please try again later."
	textInternalError  = "Something went wrong. Check the logs."
	textBroadcastAbort = "⛔ Broadcast aborted by a configuration error:\n%s"

	textStats   = "📊 Total users: %d"
	textNoUsers = "No users found."

	usersFileName = "user_ids.txt"
)
