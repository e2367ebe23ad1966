package textstat

var stopwords = Set(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any",
	"are", "as", "at", "be", "because", "been", "before", "being", "below", "between", "both",
	"but", "by", "can", "could", "did", "do", "does", "doing", "down", "during", "each", "even",
	"every", "few", "for", "from", "further", "had", "has", "have", "having", "he", "her", "here",
	"hers", "herself", "him", "himself", "his", "how", "i", "if", "in", "into", "is", "it", "its",
	"itself", "just", "like", "made", "make", "many", "may", "me", "might", "more", "most", "much",
	"must", "my", "myself", "no", "nor", "not", "now", "of", "off", "on", "once", "only", "or",
	"other", "our", "ours", "ourselves", "out", "over", "own", "same", "she", "should", "so",
	"some", "such", "than", "that", "the", "their", "theirs", "them", "themselves", "then",
	"there", "these", "they", "this", "those", "through", "to", "too", "under", "until", "up",
	"upon", "very", "was", "we", "well", "were", "what", "when", "where", "which", "while", "who",
	"whom", "why", "will", "with", "within", "without", "would", "you", "your", "yours",
	"yourself", "yourselves", "been", "into", "onto", "really", "still", "thing", "things",
	"get", "got", "going", "want", "need", "said", "says", "one", "two", "use", "used", "using",
)

// IsStopword reports whether w (already normalized) is a common function word.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
