package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal
	TokenPragma // #pragma line or _Pragma("..."), Literal holds the pragma text

	// Literals
	TokenIdent    // main, foo, x
	TokenInt      // 42, 0x2AUL
	TokenFloatLit // 1.5f, 0x1p3
	TokenCharLit  // 'a' (Literal without quotes)
	TokenString   // "hello" (Literal without quotes)

	// Keywords
	TokenInt_    // int
	TokenVoid    // void
	TokenReturn  // return
	TokenIf      // if
	TokenElse    // else
	TokenWhile   // while
	TokenDo       // do
	TokenFor      // for
	TokenBreak    // break
	TokenContinue // continue
	TokenSwitch   // switch
	TokenCase     // case
	TokenDefault  // default
	TokenGoto     // goto
	TokenTypedef  // typedef
	TokenStruct   // struct
	TokenSizeof   // sizeof
	TokenUnion    // union
	TokenEnum     // enum
	TokenStatic   // static
	TokenExtern   // extern
	TokenAuto     // auto
	TokenRegister // register
	TokenConst    // const
	TokenVolatile // volatile
	TokenRestrict // restrict
	TokenChar     // char
	TokenShort    // short
	TokenLong     // long
	TokenFloat    // float
	TokenDouble   // double
	TokenSigned   // signed
	TokenUnsigned // unsigned

	// C11 keywords
	TokenInline       // inline
	TokenBool         // _Bool
	TokenComplex      // _Complex
	TokenAlignas      // _Alignas
	TokenAlignof      // _Alignof
	TokenAtomic       // _Atomic
	TokenGeneric      // _Generic
	TokenNoreturn     // _Noreturn
	TokenStaticAssert // _Static_assert
	TokenThreadLocal  // _Thread_local

	// GNU and MSVC extensions
	TokenAttribute // __attribute__
	TokenDeclspec  // __declspec
	TokenExtension // __extension__
	TokenAsm       // __asm__
	TokenTypeof    // __typeof__
	TokenCallConv  // __cdecl, __stdcall, __fastcall, __vectorcall, __thiscall
	TokenQualExt   // _Nullable, __ptr64 and other qualifiers without layout effect
	TokenInt8      // __int8
	TokenInt16     // __int16
	TokenInt32     // __int32
	TokenInt64     // __int64
	TokenInt128    // __int128
	TokenFloat16   // _Float16, __fp16

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenAssign    // =
	TokenEq        // ==
	TokenNe        // !=
	TokenLt        // <
	TokenLe        // <=
	TokenGt        // >
	TokenGe        // >=
	TokenAnd       // &&
	TokenOr        // ||
	TokenNot       // !
	TokenAmpersand // &
	TokenPipe      // |
	TokenCaret     // ^
	TokenTilde     // ~
	TokenShl       // <<
	TokenShr       // >>
	TokenQuestion  // ?
	TokenColon     // :

	// Compound assignment operators
	TokenPlusAssign    // +=
	TokenMinusAssign   // -=
	TokenStarAssign    // *=
	TokenSlashAssign   // /=
	TokenPercentAssign // %=
	TokenAndAssign     // &=
	TokenOrAssign      // |=
	TokenXorAssign     // ^=
	TokenShlAssign     // <<=
	TokenShrAssign     // >>=

	// Increment/decrement
	TokenIncrement // ++
	TokenDecrement // --

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenSemicolon // ;
	TokenComma     // ,
	TokenDot       // .
	TokenArrow     // ->
	TokenEllipsis  // ...
	TokenHash      // # outside a directive (stray)
)

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenIllegal:       "ILLEGAL",
	TokenPragma:        "PRAGMA",
	TokenIdent:         "IDENT",
	TokenInt:           "INT",
	TokenFloatLit:      "FLOAT",
	TokenCharLit:       "CHAR",
	TokenString:        "STRING",
	TokenInt_:          "int",
	TokenVoid:          "void",
	TokenReturn:        "return",
	TokenIf:            "if",
	TokenElse:          "else",
	TokenWhile:         "while",
	TokenDo:            "do",
	TokenFor:           "for",
	TokenBreak:         "break",
	TokenContinue:      "continue",
	TokenSwitch:        "switch",
	TokenCase:          "case",
	TokenDefault:       "default",
	TokenGoto:          "goto",
	TokenTypedef:       "typedef",
	TokenStruct:        "struct",
	TokenSizeof:        "sizeof",
	TokenUnion:         "union",
	TokenEnum:          "enum",
	TokenStatic:        "static",
	TokenExtern:        "extern",
	TokenAuto:          "auto",
	TokenRegister:      "register",
	TokenConst:         "const",
	TokenVolatile:      "volatile",
	TokenRestrict:      "restrict",
	TokenChar:          "char",
	TokenShort:         "short",
	TokenLong:          "long",
	TokenFloat:         "float",
	TokenDouble:        "double",
	TokenSigned:        "signed",
	TokenUnsigned:      "unsigned",
	TokenInline:        "inline",
	TokenBool:          "_Bool",
	TokenComplex:       "_Complex",
	TokenAlignas:       "_Alignas",
	TokenAlignof:       "_Alignof",
	TokenAtomic:        "_Atomic",
	TokenGeneric:       "_Generic",
	TokenNoreturn:      "_Noreturn",
	TokenStaticAssert:  "_Static_assert",
	TokenThreadLocal:   "_Thread_local",
	TokenAttribute:     "__attribute__",
	TokenDeclspec:      "__declspec",
	TokenExtension:     "__extension__",
	TokenAsm:           "__asm__",
	TokenTypeof:        "__typeof__",
	TokenCallConv:      "CALLCONV",
	TokenQualExt:       "QUALIFIER",
	TokenInt8:          "__int8",
	TokenInt16:         "__int16",
	TokenInt32:         "__int32",
	TokenInt64:         "__int64",
	TokenInt128:        "__int128",
	TokenFloat16:       "_Float16",
	TokenPlus:          "+",
	TokenMinus:         "-",
	TokenStar:          "*",
	TokenSlash:         "/",
	TokenPercent:       "%",
	TokenAssign:        "=",
	TokenEq:            "==",
	TokenNe:            "!=",
	TokenLt:            "<",
	TokenLe:            "<=",
	TokenGt:            ">",
	TokenGe:            ">=",
	TokenAnd:           "&&",
	TokenOr:            "||",
	TokenNot:           "!",
	TokenAmpersand:     "&",
	TokenPipe:          "|",
	TokenCaret:         "^",
	TokenTilde:         "~",
	TokenShl:           "<<",
	TokenShr:           ">>",
	TokenQuestion:      "?",
	TokenColon:         ":",
	TokenPlusAssign:    "+=",
	TokenMinusAssign:   "-=",
	TokenStarAssign:    "*=",
	TokenSlashAssign:   "/=",
	TokenPercentAssign: "%=",
	TokenAndAssign:     "&=",
	TokenOrAssign:      "|=",
	TokenXorAssign:     "^=",
	TokenShlAssign:     "<<=",
	TokenShrAssign:     ">>=",
	TokenIncrement:     "++",
	TokenDecrement:     "--",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenSemicolon:     ";",
	TokenComma:         ",",
	TokenDot:           ".",
	TokenArrow:         "->",
	TokenEllipsis:      "...",
	TokenHash:          "#",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	File    string // presumed file from the last line marker
	System  bool   // the file was entered as a system header (marker flag 3)
}

// keywords maps keyword strings to token types
var keywords = map[string]TokenType{
	"int":      TokenInt_,
	"void":     TokenVoid,
	"return":   TokenReturn,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"do":       TokenDo,
	"for":      TokenFor,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"switch":   TokenSwitch,
	"case":     TokenCase,
	"default":  TokenDefault,
	"goto":     TokenGoto,
	"typedef":  TokenTypedef,
	"struct":   TokenStruct,
	"sizeof":   TokenSizeof,
	"union":    TokenUnion,
	"enum":     TokenEnum,
	"static":   TokenStatic,
	"extern":   TokenExtern,
	"auto":     TokenAuto,
	"register": TokenRegister,
	"const":    TokenConst,
	"volatile": TokenVolatile,
	"restrict": TokenRestrict,
	"char":     TokenChar,
	"short":    TokenShort,
	"long":     TokenLong,
	"float":    TokenFloat,
	"double":   TokenDouble,
	"signed":   TokenSigned,
	"unsigned": TokenUnsigned,

	"inline":         TokenInline,
	"_Bool":          TokenBool,
	"_Complex":       TokenComplex,
	"_Alignas":       TokenAlignas,
	"_Alignof":       TokenAlignof,
	"_Atomic":        TokenAtomic,
	"_Generic":       TokenGeneric,
	"_Noreturn":      TokenNoreturn,
	"_Static_assert": TokenStaticAssert,
	"_Thread_local":  TokenThreadLocal,

	// extension spellings collapse onto the standard keyword
	"__inline":           TokenInline,
	"__inline__":         TokenInline,
	"__forceinline":      TokenInline,
	"__restrict":         TokenRestrict,
	"__restrict__":       TokenRestrict,
	"__const":            TokenConst,
	"__const__":          TokenConst,
	"__volatile":         TokenVolatile,
	"__volatile__":       TokenVolatile,
	"__signed":           TokenSigned,
	"__signed__":         TokenSigned,
	"__complex__":        TokenComplex,
	"__alignof":          TokenAlignof,
	"__alignof__":        TokenAlignof,
	"__thread":           TokenThreadLocal,
	"__attribute":        TokenAttribute,
	"__attribute__":      TokenAttribute,
	"__declspec":         TokenDeclspec,
	"__extension__":      TokenExtension,
	"asm":                TokenAsm,
	"__asm":              TokenAsm,
	"__asm__":            TokenAsm,
	"typeof":             TokenTypeof,
	"__typeof":           TokenTypeof,
	"__typeof__":         TokenTypeof,
	"__cdecl":            TokenCallConv,
	"_cdecl":             TokenCallConv,
	"__stdcall":          TokenCallConv,
	"_stdcall":           TokenCallConv,
	"__fastcall":         TokenCallConv,
	"_fastcall":          TokenCallConv,
	"__vectorcall":       TokenCallConv,
	"__thiscall":         TokenCallConv,
	"_Nullable":          TokenQualExt,
	"_Nonnull":           TokenQualExt,
	"_Null_unspecified":  TokenQualExt,
	"__nullable":         TokenQualExt,
	"__nonnull":          TokenQualExt,
	"__null_unspecified": TokenQualExt,
	"_Nullable_result":   TokenQualExt,
	"__ptr32":            TokenQualExt,
	"__ptr64":            TokenQualExt,
	"__w64":              TokenQualExt,
	"__unaligned":        TokenQualExt,
	"__sptr":             TokenQualExt,
	"__uptr":             TokenQualExt,
	"__kindof":           TokenQualExt,
	"__int8":             TokenInt8,
	"__int16":            TokenInt16,
	"__int32":            TokenInt32,
	"__int64":            TokenInt64,
	"__int128":           TokenInt128,
	"__int128_t":         TokenInt128,
	"_Float16":           TokenFloat16,
	"__fp16":             TokenFloat16,
}

// LookupIdent returns the token type for an identifier (keyword or IDENT)
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}
