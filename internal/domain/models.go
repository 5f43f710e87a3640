package domain

// Role distinguishes the two portal account types.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Identity is the logged-in account as the server describes it.
// Coins is meaningful for students only.
type Identity struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Coins int    `json:"coins"`
}

// Student is a teacher's roster view of one student. It has its own
// lifecycle even when it refers to the same person as Identity.
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Class    string `json:"class"`
	Coins    int    `json:"coins"`
	ColorTag string `json:"colorTag"`
}

// TxType marks the direction of a coin transaction.
type TxType string

const (
	TxEarn  TxType = "earn"
	TxSpend TxType = "spend"
)

// Transaction is one ledger row. Amount is signed: positive for earn,
// negative for spend. Synthetic rows are client-generated placeholders
// that the next server refetch replaces.
type Transaction struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Type      TxType `json:"type"`
	Amount    int    `json:"amount"`
	Category  string `json:"category"`
	Date      string `json:"date"`
	Synthetic bool   `json:"-"`
}

// ShopItem is one redeemable catalog entry.
type ShopItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cost     int    `json:"cost"`
	Category string `json:"category"`
	Emoji    string `json:"emoji"`
	Image    string `json:"image"`
	Tag      string `json:"tag"`
	Desc     string `json:"desc"`
}

// Question is an MCQ question with exactly four options.
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
}

// Quiz is one authored quiz. Attempt is non-nil when the requesting
// student has already submitted; the server embeds it in the list response.
type Quiz struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Subject          string       `json:"subject"`
	Class            string       `json:"class"`
	MaxCoins         int          `json:"maxCoins"`
	TimeLimitMinutes int          `json:"timeLimitMinutes"`
	Questions        []Question   `json:"questions"`
	Active           bool         `json:"active"`
	Attempt          *QuizAttempt `json:"attempt,omitempty"`
}

// QuizAttempt is the single permitted submission record for one
// (quiz, student) pair. Immutable once resolved.
type QuizAttempt struct {
	ID               string `json:"id"`
	QuizID           string `json:"quizId"`
	StudentID        string `json:"studentId"`
	Answers          []int  `json:"answers"`
	Score            int    `json:"score"`
	CoinsEarned      int    `json:"coinsEarned"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

// ResultRow is one line of a quiz's aggregated results, as seen by teachers.
type ResultRow struct {
	Student     string `json:"student"`
	Score       int    `json:"score"`
	CoinsEarned int    `json:"coinsEarned"`
	TimeTaken   int    `json:"timeTaken"`
}

// SubmitResult is the grading response for one attempt submission.
type SubmitResult struct {
	Attempt     *QuizAttempt `json:"attempt"`
	Score       int          `json:"score"`
	CoinsEarned int          `json:"coinsEarned"`
	Correct     int          `json:"correct"`
	Total       int          `json:"total"`
}
