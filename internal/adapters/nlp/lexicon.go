package nlp

func setOf(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var defaultStopwords = setOf(
	// en
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and", "any", "are", "as", "at",
	"be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "don", "down", "during", "each", "few", "for", "from", "further",
	"had", "has", "have", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "itself", "just", "me", "more", "most", "my", "myself",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own",
	"same", "she", "should", "so", "some", "such", "than", "that", "the", "their", "theirs", "them", "themselves", "then",
	"there", "these", "they", "this", "those", "through", "to", "too", "under", "until", "up", "very",
	"was", "we", "were", "what", "when", "where", "which", "while", "who", "whom", "why", "will", "with", "would",
	"you", "your", "yours", "yourself", "yourselves", "im", "dont", "its", "ok", "yes", "yeah",
	// ru
	"и", "в", "во", "не", "что", "он", "на", "я", "с", "со", "как", "а", "то", "все", "она", "так", "его", "но", "да",
	"ты", "к", "у", "же", "вы", "за", "бы", "по", "только", "ее", "мне", "было", "вот", "от", "меня", "еще", "нет",
	"о", "из", "ему", "теперь", "когда", "даже", "ну", "вдруг", "ли", "если", "уже", "или", "ни", "быть", "был",
	"него", "до", "вас", "нибудь", "опять", "уж", "вам", "ведь", "там", "потом", "себя", "ничего", "ей", "может",
	"они", "тут", "где", "есть", "надо", "ней", "для", "мы", "тебя", "их", "чем", "была", "сам", "чтоб", "без",
	"будто", "чего", "раз", "тоже", "себе", "под", "будет", "ж", "тогда", "кто", "этот", "того", "потому", "этого",
	"какой", "совсем", "ним", "здесь", "этом", "один", "почти", "мой", "тем", "чтобы", "нее", "сейчас", "были",
	"куда", "зачем", "всех", "никогда", "можно", "при", "наконец", "два", "об", "другой", "хоть", "после", "над",
	"больше", "тот", "через", "эти", "нас", "про", "всего", "них", "какая", "много", "разве", "три", "эту", "моя",
	"впрочем", "хорошо", "свою", "этой", "перед", "иногда", "лучше", "чуть", "том", "нельзя", "такой", "им", "более",
	"всегда", "конечно", "всю", "между", "это", "просто", "вообще",
	// zh
	"的", "了", "和", "是", "就", "都", "而", "及", "與", "著", "或", "一個", "沒有", "我們", "你們", "他們", "她們", "自己",
	"這", "那", "這個", "那個", "這些", "那些", "這樣", "那樣", "不", "沒", "不是", "不能", "不要", "不會",
	"一个", "没有", "我们", "你们", "他们", "这", "这个", "那个", "这些", "那些", "这样", "那样", "不会",
)

var positiveWords = setOf(
	// en
	"good", "great", "excellent", "awesome", "amazing", "love", "loved", "like", "liked", "nice", "happy", "glad",
	"cool", "best", "wonderful", "fantastic", "perfect", "thanks", "thank", "beautiful", "fun", "enjoy", "enjoyed",
	"brilliant", "super", "yay", "wow", "congrats", "congratulations", "win", "won",
	// ru
	"хорошо", "хороший", "хорошая", "отлично", "отличный", "супер", "класс", "классно", "круто", "крутой",
	"спасибо", "люблю", "нравится", "рад", "рада", "прекрасно", "замечательно", "молодец", "ура", "здорово",
	"лучший", "красиво", "приятно", "поздравляю",
	// zh
	"好", "喜欢", "爱", "棒", "优秀", "开心", "快乐", "美", "赞", "佳",
)

var negativeWords = setOf(
	// en
	"bad", "terrible", "awful", "horrible", "hate", "hated", "sad", "angry", "worst", "poor", "ugly", "boring",
	"annoying", "wrong", "fail", "failed", "broken", "sucks", "problem", "sorry", "disappointed", "upset",
	// ru
	"плохо", "плохой", "плохая", "ужасно", "ужасный", "отстой", "ненавижу", "грустно", "жаль", "обидно",
	"проблема", "ошибка", "сломалось", "бесит", "кошмар", "худший", "скучно", "зря",
	// zh
	"坏", "差", "烂", "讨厌", "恨", "悲伤", "痛苦", "丑", "糟", "恶心",
)
