package sentiment

// lexicon maps lowercase tokens to valence on the AFINN -5..+5 scale.
// Deliberately small: the mood signal only needs a coarse reading of the
// last handful of messages, not an accurate classifier.
var lexicon = map[string]float64{
	// positive
	"love": 3, "loved": 3, "loves": 3, "lovely": 3,
	"like": 2, "liked": 2, "likes": 2,
	"good": 3, "great": 3, "nice": 3, "fine": 2,
	"happy": 3, "glad": 3, "joy": 3, "fun": 4,
	"calm": 2, "peaceful": 3, "gentle": 3, "soft": 1,
	"warm": 2, "cozy": 2, "sweet": 2, "kind": 2,
	"beautiful": 3, "wonderful": 4, "amazing": 4, "awesome": 4,
	"cool": 1, "ok": 1, "okay": 1, "yes": 1, "yay": 3,
	"thanks": 2, "thank": 2, "welcome": 2, "friend": 1,
	"best": 3, "better": 2, "win": 4, "won": 3,
	"laugh": 3, "lol": 2, "haha": 3, "smile": 2,
	"hope": 2, "excited": 3, "interesting": 2, "agree": 1,
	"easy": 1, "safe": 1, "rest": 1, "quiet": 1,

	// negative
	"hate": -3, "hated": -3, "hates": -3,
	"bad": -3, "awful": -3, "terrible": -3, "horrible": -3,
	"angry": -3, "mad": -3, "furious": -4, "rage": -4,
	"sad": -2, "cry": -1, "crying": -2, "miserable": -3,
	"fight": -1, "fighting": -2, "war": -2, "kill": -3,
	"stupid": -2, "dumb": -3, "idiot": -3, "fool": -2,
	"wrong": -2, "worst": -3, "worse": -3, "fail": -2,
	"annoying": -2, "annoyed": -2, "ugh": -1, "no": -1,
	"never": -1, "nothing": -1, "broken": -1, "hurt": -2,
	"scared": -2, "fear": -2, "afraid": -2, "panic": -3,
	"shut": -1, "stop": -1, "wtf": -4, "damn": -4,
	"hell": -4, "screw": -2, "liar": -3, "lie": -2,
	"toxic": -3, "gross": -2, "disgusting": -3, "creepy": -2,
}
