/*
Package semtok turns tokenizer output into LSP semantic tokens.

	Script Text              LSP Client
	     |                       ^
	     v                       |
	+------------+  tokens  +----------+
	| @tokenizer | -------> | @semtok  |
	+------------+          +----------+
	                             |
	                   legend + relative encoding
	                   [deltaLine, deltaChar, length,
	                    tokenType, tokenModifiers]

Token type mapping:

	tokenizer.Kind      ->   legend entry
	--------------           ------------
	Keyword             ->   keyword
	Function            ->   function (defaultLibrary)
	Variable            ->   variable (readonly for system variables)
	Field               ->   property
	String              ->   string
	Number              ->   number
	Comment             ->   comment
	Operator            ->   operator

Whitespace, delimiters, plain identifiers and invalid spans carry no semantic
colour and are left to the client's base highlighting.

Columns are byte offsets inside the tokenizer and UTF-16 code units on the
wire; Encode does the conversion per line.
*/
package semtok
