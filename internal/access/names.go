package access

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

var adjectives = []string{
	"Happy", "Swift", "Clever", "Brave", "Calm", "Bright", "Gentle", "Lucky",
	"Quiet", "Bold", "Witty", "Sunny", "Eager", "Jolly", "Mighty", "Nimble",
}

var nouns = []string{
	"Panda", "Falcon", "Otter", "Tiger", "Koala", "Fox", "Dolphin", "Owl",
	"Badger", "Lynx", "Heron", "Rabbit", "Penguin", "Wolf", "Turtle", "Sparrow",
}

// defaultNamePattern GenerateDefaultName이 만드는 이름
var defaultNamePattern = regexp.MustCompile(
	"^(" + strings.Join(adjectives, "|") + ")(" + strings.Join(nouns, "|") + `)\d{1,4}$`,
)

// GenerateDefaultName 형용사+명사+숫자 임시 이름 생성
func GenerateDefaultName() string {
	adj := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	return adj + noun + strconv.Itoa(rand.IntN(1000))
}

// IsDefaultName 자동 생성된 이름인지 확인. 이런 이름은 저장하지 않는다.
func IsDefaultName(name string) bool {
	return defaultNamePattern.MatchString(name)
}
