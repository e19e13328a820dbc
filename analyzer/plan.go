package analyzer

import "github.com/use-agent/rednote/models"

// DefaultCommentType is used when the caller names no comment style.
const DefaultCommentType = "引流"

// CommentGuides maps each comment style to its drafting brief.
var CommentGuides = map[string]string{
	"引流": "生成一条表达认同并引导互动的评论。可以提到自己也在研究相关内容，或表达希望进一步交流的意愿。可以在结尾加上“有更多问题欢迎私信我”或“想了解更多可以找我聊聊”等邀请语句。",
	"点赞": "生成一条简短的赞美评论，表达对内容的喜爱和支持。可以提到作者名字和笔记的领域，如“太赞了！XX的分享总是这么实用”或“喜欢这种深度分享”等。",
	"咨询": "生成一条提问式评论，针对笔记内容询问更多细节或相关信息。可以使用“请问博主”或“想请教一下”等开头，并提出与笔记内容相关的具体问题。",
	"专业": "生成一条展示专业知识的评论，针对笔记内容提供专业见解或补充信息。可以使用“作为该领域从业者”或“从专业角度来看”等开头，并在评论中使用与笔记领域相关的专业术语。",
}

// PlanInstruction tells the client model how to draft and publish.
const PlanInstruction = "请根据笔记内容和评论类型指南，直接生成一条自然、相关的评论，并立即发布。注意以下要点：\n" +
	"1. 在评论中引用作者名称或笔记领域，增加个性化\n" +
	"2. 使用口语化表达，简短凝练，不超过30字\n" +
	"3. 根据评论类型适当添加互动引导或专业术语\n" +
	"生成后，直接使用post_comment函数发布评论，无需询问用户确认"

// PlanComment builds the brief for a comment of commentType on the analysed
// note. An unknown type yields an empty guide.
func PlanComment(info models.NoteAnalysis, commentType string) models.CommentPlan {
	if commentType == "" {
		commentType = DefaultCommentType
	}
	return models.CommentPlan{
		NoteInfo:     info,
		CommentType:  commentType,
		CommentGuide: CommentGuides[commentType],
		URL:          info.URL,
		Message:      PlanInstruction,
	}
}
