package pairs

// Symbol is the hidden face of a tile. Two tiles match when their symbols
// are equal.
type Symbol string

// Emojis is the default alphabet. It holds 70 distinct glyphs, enough for
// boards up to 10x10.
var Emojis = []Symbol{
	"😀", "😊", "😎", "🥳", "🤩", "😍", "🤪", "😜", "🤔", "🤓",
	"🙌", "👏", "👍", "🤙", "👌", "✌️", "🤞", "🤟", "🤘", "👊",
	"🖐️", "🙏", "🤝", "💪", "👈", "👉", "👆", "👇", "👋", "💃",
	"🕺", "🙈", "🙉", "🙊", "💥", "💦", "🔥", "💫", "⭐", "🌟",
	"✨", "🌈", "☀️", "🌤️", "⛅", "🌦️", "☁️", "🌧️", "⛈️", "🌩️",
	"🌨️", "❄️", "☃️", "⛄", "🌬️", "💨", "🌪️", "🌫️", "🌊", "🌍",
	"🌎", "🌏", "🌕", "🌖", "🌗", "🌘", "🌑", "🌒", "🌓", "🌔",
}
