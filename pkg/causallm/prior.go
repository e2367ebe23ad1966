package causallm

// priorVocabulary is the assumed vocabulary size for words outside
// commonWordFreq.
const priorVocabulary = 50000

// commonWordFreq approximates per-token frequencies of the most common
// English words in mixed written and conversational text.
var commonWordFreq = map[string]float64{
	"the": 0.0500, "of": 0.0260, "and": 0.0260, "to": 0.0240, "a": 0.0210,
	"in": 0.0170, "i": 0.0120, "is": 0.0100, "it": 0.0100, "that": 0.0100,
	"you": 0.0090, "for": 0.0080, "was": 0.0070, "with": 0.0070, "on": 0.0060,
	"as": 0.0050, "have": 0.0050, "be": 0.0050, "at": 0.0045, "but": 0.0045,
	"this": 0.0045, "not": 0.0040, "are": 0.0040, "they": 0.0040, "he": 0.0040,
	"my": 0.0040, "we": 0.0035, "so": 0.0035, "or": 0.0030, "from": 0.0030,
	"by": 0.0030, "had": 0.0030, "his": 0.0030, "she": 0.0025, "her": 0.0025,
	"do": 0.0025, "an": 0.0025, "all": 0.0025, "there": 0.0025, "what": 0.0025,
	"can": 0.0025, "if": 0.0025, "about": 0.0020, "which": 0.0020, "one": 0.0020,
	"would": 0.0020, "their": 0.0020, "will": 0.0020, "more": 0.0020, "when": 0.0020,
	"me": 0.0020, "just": 0.0020, "like": 0.0020, "were": 0.0020, "been": 0.0018,
	"has": 0.0018, "out": 0.0018, "up": 0.0018, "no": 0.0018, "them": 0.0015,
	"some": 0.0015, "it's": 0.0015, "i'm": 0.0015, "don't": 0.0015, "how": 0.0015,
	"other": 0.0012, "than": 0.0012, "then": 0.0012, "also": 0.0012, "into": 0.0012,
	"time": 0.0012, "very": 0.0012, "really": 0.0010, "because": 0.0010, "only": 0.0010,
	"get": 0.0010, "after": 0.0010, "first": 0.0010, "even": 0.0010, "much": 0.0010,
	"could": 0.0010, "these": 0.0010, "our": 0.0010, "any": 0.0010, "most": 0.0010,
	"well": 0.0010, "way": 0.0010, "new": 0.0010, "good": 0.0010, "think": 0.0010,
}

var rareWordProb = func() float64 {
	sum := 0.0
	for _, f := range commonWordFreq {
		sum += f
	}
	return (1 - sum) / priorVocabulary
}()

func priorProb(w string) float64 {
	if f, ok := commonWordFreq[w]; ok {
		return f
	}
	return rareWordProb
}
