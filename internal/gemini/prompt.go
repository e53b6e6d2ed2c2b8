package gemini

import "fmt"

const interpretationInstruction = "이 꿈을 간결하게 해석해줘. 핵심 의미만 5줄 이내로 요약해서 알려줘. " +
	"이 꿈이 길몽인지 흉몽인지 태몽인지 확실하다면 그걸 맨 앞에 언급해줘: %s"

const imageInstruction = "%s 스타일로 '%s' 장면을 몽환적이고 예술적인 일러스트로 시각화해줘. " +
	"텍스트 설명은 절대 포함하지 말고, 반드시 이미지만 생성해."

type (
	InterpretationTemplate func(dreamText string) string
	ImageTemplate          func(dreamText, style string) string
)

// BuildInterpretationPrompt appends the dream verbatim after the instruction.
func BuildInterpretationPrompt(dreamText string) string {
	return fmt.Sprintf(interpretationInstruction, dreamText)
}

// BuildImagePrompt substitutes style as given; an empty style stays empty.
func BuildImagePrompt(dreamText, style string) string {
	return fmt.Sprintf(imageInstruction, style, dreamText)
}
