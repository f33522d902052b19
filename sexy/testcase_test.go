package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

// fence renders a fenced code block.
func fence(language, body string) string {
	return "```" + language + "\n" + body + "\n```\n"
}

func TestExtractTestCases_BasicTest(t *testing.T) {
	markdown := "# Binary expressions\n\n" +
		"## Test: +\n" +
		fence("pyrx-expr", "1 + 2") +
		fence("ast", `(binary "+" (int 1) (int 2))`) +
		"\n## Test: -\n" +
		fence("pyrx-expr", "1 - 2") +
		fence("ast", `(binary "-" (int 1) (int 2))`)

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "+")
	be.Equal(t, tc1.Input, "1 + 2")
	be.Equal(t, tc1.InputType, InputTypeExpr)
	be.Equal(t, tc1.Line, 3)
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc1.Assertions[0].Content, `(binary "+" (int 1) (int 2))`)
	be.Equal(t, tc1.Assertions[0].ParsedSexy.String(), `(binary "+" (int 1) (int 2))`)

	tc2 := testCases[1]
	be.Equal(t, tc2.Name, "-")
	be.Equal(t, tc2.Input, "1 - 2")
	be.Equal(t, tc2.Assertions[0].ParsedSexy.String(), `(binary "-" (int 1) (int 2))`)
}

func TestExtractTestCases_MultipleAssertions(t *testing.T) {
	markdown := "## Test: definition\n" +
		fence("pyrx-program", "x: int = 1;\nprint(x);") +
		fence("ast", `(program (defn "x" int (int 1)) (print (var "x")))`) +
		fence("types", `{x: int}`) +
		fence("ir", `{main: {store: 1, load: 1}}`)

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, tc.Input, "x: int = 1;\nprint(x);")
	be.Equal(t, tc.InputType, InputTypeProgram)
	be.Equal(t, len(tc.Assertions), 3)
	be.Equal(t, tc.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc.Assertions[1].Type, AssertionTypeTypes)
	be.Equal(t, tc.Assertions[1].ParsedSexy.Type, NodeMap)
	be.Equal(t, tc.Assertions[2].Type, AssertionTypeIR)

	main, ok := tc.Assertions[2].ParsedSexy.Get("main")
	be.True(t, ok)
	be.Equal(t, main.String(), "{store: 1, load: 1}")
}

func TestExtractTestCases_CompileErrorIsPlainText(t *testing.T) {
	markdown := "## Test: undeclared\n" +
		fence("pyrx-program", "print(y);") +
		fence("compile-error", "undeclared-identifier: 'y' is not declared")

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	a := testCases[0].Assertions[0]
	be.Equal(t, a.Type, AssertionTypeCompileError)
	be.Equal(t, a.Content, "undeclared-identifier: 'y' is not declared")
	be.True(t, a.ParsedSexy == nil)
}

func TestExtractTestCases_EmptyFile(t *testing.T) {
	testCases, err := ExtractTestCases("")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCases(t *testing.T) {
	testCases, err := ExtractTestCases("# Notes\n\nJust prose about the language.\n")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_InvalidSexyAssertion(t *testing.T) {
	markdown := "## Test: invalid sexy\n" +
		fence("pyrx-expr", "1 + 2") +
		fence("ast", "(unclosed list")

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "failed to parse Sexy assertion"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_FenceOutsideTestCase(t *testing.T) {
	for _, language := range []string{"pyrx-expr", "pyrx-program", "ast", "types", "ir", "compile-error"} {
		t.Run(language, func(t *testing.T) {
			_, err := ExtractTestCases("# Document\n\n" + fence(language, "x"))
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), language+" fence found outside of test case"))
			be.True(t, strings.Contains(err.Error(), "line 4"))
		})
	}
}

func TestExtractTestCases_UnknownFenceLanguage(t *testing.T) {
	inside := "## Test: with unknown fence\n" +
		fence("python", `print("hello")`) +
		fence("pyrx-expr", "1 + 2") +
		fence("ast", "_")
	_, err := ExtractTestCases(inside)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'python' in test 'with unknown fence'"))

	outside := "# Document\n\n" + fence("go", "func main() {}")
	_, err = ExtractTestCases(outside)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'go' found outside of test case"))
}

func TestExtractTestCases_TestMissingFences(t *testing.T) {
	_, err := ExtractTestCases("## Test: no input\n" + fence("ast", "_"))
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'no input' has no input fence"))

	_, err = ExtractTestCases("## Test: no assertions\n" + fence("pyrx-expr", "1"))
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'no assertions' has no assertion fences"))
}

func TestExtractTestCases_MultipleInputFences(t *testing.T) {
	markdown := "## Test: multiple inputs\n" +
		fence("pyrx-expr", "1 + 2") +
		fence("pyrx-program", "print(1);") +
		fence("ast", "_")

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "multiple input fences found"))
}

func TestExtractTestCases_AllowFencesWithoutLanguage(t *testing.T) {
	markdown := "# Document with generic code block\n\n" +
		fence("", "some code without language") +
		"\n## Test: valid test\n" +
		fence("pyrx-expr", "1 + 2") +
		fence("ast", "_") +
		fence("", "more code without language in test")

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.Equal(t, testCases[0].Name, "valid test")
	be.Equal(t, len(testCases[0].Assertions), 1)
}

func TestExtractTestCases_ErrorInSecondTest(t *testing.T) {
	markdown := "## Test: first test\n" +
		fence("pyrx-expr", "1 + 2") +
		fence("ast", "_") +
		"\n## Test: second test missing input\n" +
		fence("ast", "_")

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'second test missing input' has no input fence"))
}

func TestExtractTestCases_MultilineProgram(t *testing.T) {
	program := "def f(x: int) -> int {\n    return x + 1;\n}\nprint(f(2));"
	markdown := "## Test: function\n" +
		fence("pyrx-program", program) +
		fence("ir", "{f: {add: 1, ret: 1}}")

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, testCases[0].Input, program)
}
