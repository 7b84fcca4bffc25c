// Package i18n localizes the user-facing messages attached to API error codes.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/coursehub/registration-api/internal/core/domain"
)

var supported = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var (
	matcher = language.NewMatcher(supported)
	bundle  = mustBuild()
)

var messages = map[string][2]string{
	domain.CodeNotFound:                {"course not found", "课程不存在"},
	domain.CodeWindowClosed:            {"registration window is closed", "报名时间未开放或已结束"},
	domain.CodeCourseFull:              {"course is full", "课程名额已满"},
	domain.CodeAlreadyRegistered:       {"already registered for this course", "您已报名该课程"},
	domain.CodeNotRegistered:           {"not registered for this course", "您尚未报名该课程"},
	domain.CodeTransient:               {"service temporarily unavailable, please retry", "服务暂时不可用，请稍后重试"},
	domain.CodeInvalidCourse:           {"invalid course", "课程信息无效"},
	domain.CodeCourseClosedForEdit:     {"course can no longer be edited", "报名结束超过一天的课程不能修改"},
	domain.CodeCourseStillOpen:         {"course cannot be deleted before registration ends", "报名未结束的课程不能删除"},
	domain.CodeCapacityBelowRegistered: {"capacity cannot be lower than current registrations", "课程容量不能小于已报名人数"},
	domain.CodeUserNotFound:            {"user not found", "用户不存在"},
	domain.CodeUserExists:              {"user already exists", "该邮箱已被注册"},
	domain.CodeInvalidCredentials:      {"invalid credentials", "密码错误"},
	domain.CodeForbidden:               {"access forbidden", "权限不足"},
	domain.CodeSocialLoginDisabled:     {"social login is not configured", "未配置第三方登录"},
	domain.CodeSocialLoginFailed:       {"social login failed", "第三方登录失败"},
	domain.CodeInternal:                {"internal server error", "服务器内部错误"},

	windowKey(domain.WindowNotYetOpen):    {"registration has not started yet", "报名尚未开始"},
	windowKey(domain.WindowAlreadyClosed): {"registration has already ended", "报名已经结束"},
}

func windowKey(state domain.WindowState) string {
	return domain.CodeWindowClosed + "." + string(state)
}

// WindowMessage returns the localized text for a closed window, worded for
// whether registration has yet to open or has already ended.
func WindowMessage(acceptLanguage string, state domain.WindowState) string {
	key := windowKey(state)
	if _, ok := messages[key]; !ok {
		key = domain.CodeWindowClosed
	}
	return Message(acceptLanguage, key)
}

func mustBuild() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for code, m := range messages {
		for i, tag := range supported {
			if err := b.SetString(tag, code, m[i]); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Match picks the best supported language for an Accept-Language header.
// English is returned when the header is empty or unparseable.
func Match(acceptLanguage string) language.Tag {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Message returns the localized text for an error code. Unknown codes fall
// back to the internal error message.
func Message(acceptLanguage, code string) string {
	if _, ok := messages[code]; !ok {
		code = domain.CodeInternal
	}
	p := message.NewPrinter(Match(acceptLanguage), message.Catalog(bundle))
	return p.Sprintf(code)
}
