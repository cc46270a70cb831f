package cli

var completionScripts = map[string]string{
	"bash": bashCompletionScript,
	"zsh":  zshCompletionScript,
	"fish": fishCompletionScript,
}

const bashCompletionScript = `# bash completion for kittyrc
_kittyrc_completion() {
  local cur first i
  COMPREPLY=()
  cur="${COMP_WORDS[COMP_CWORD]}"

  i=1
  if [[ "${COMP_WORDS[1]}" == "--to" ]]; then
    i=3
  fi

  if [[ ${COMP_CWORD} -eq ${i} ]]; then
    local words
    words="$(kittyrc __complete commands 2>/dev/null)"
    words="$words"$'\n'"serve"$'\n'"mcp"$'\n'"help"$'\n'"completion"$'\n'"--to"$'\n'"--help"$'\n'"-h"$'\n'"--version"$'\n'"-V"
    COMPREPLY=( $(compgen -W "$words" -- "$cur") )
    return 0
  fi

  first="${COMP_WORDS[i]}"
  case "$first" in
    completion)
      COMPREPLY=( $(compgen -W "bash zsh fish" -- "$cur") )
      ;;
    serve)
      COMPREPLY=( $(compgen -W "--shell --config --help -h" -- "$cur") )
      ;;
    help)
      COMPREPLY=( $(compgen -W "$(kittyrc __complete commands 2>/dev/null)" -- "$cur") )
      ;;
    mcp)
      ;;
    *)
      COMPREPLY=( $(compgen -W "$(kittyrc __complete flags "$first" 2>/dev/null)" -- "$cur") )
      ;;
  esac
}
complete -F _kittyrc_completion kittyrc
`

const zshCompletionScript = `#compdef kittyrc
_kittyrc_completion() {
  local -a entries flags
  local first=2

  if [[ "${words[2]}" == "--to" ]]; then
    first=4
  fi

  if (( CURRENT == first )); then
    entries=(${(f)"$(kittyrc __complete commands 2>/dev/null)"})
    entries+=(serve mcp help completion --to --help -h --version -V)
    _describe 'kittyrc command' entries
    return
  fi

  case "${words[first]}" in
    completion)
      _values 'shell' bash zsh fish
      ;;
    serve)
      flags=(--shell --config --help -h)
      _describe 'serve flag' flags
      ;;
    help)
      entries=(${(f)"$(kittyrc __complete commands 2>/dev/null)"})
      _describe 'command' entries
      ;;
    mcp)
      ;;
    *)
      flags=(${(f)"$(kittyrc __complete flags ${words[first]} 2>/dev/null)"})
      _describe 'flag' flags
      ;;
  esac
}
compdef _kittyrc_completion kittyrc
`

const fishCompletionScript = `function __kittyrc_words
    commandline -opc
end

function __kittyrc_command
    set -l w (__kittyrc_words)
    if test (count $w) -ge 2; and test "$w[2]" = --to
        set -e w[2..3]
    end
    if test (count $w) -ge 2
        echo $w[2]
    end
end

complete -c kittyrc -n 'test -z (__kittyrc_command)' -a "serve mcp help completion --to --help -h --version -V (kittyrc __complete commands 2>/dev/null)"
complete -c kittyrc -n 'test (__kittyrc_command) = completion' -a "bash zsh fish"
complete -c kittyrc -n 'test (__kittyrc_command) = serve' -a "--shell --config --help -h"
complete -c kittyrc -n 'test (__kittyrc_command) = help' -a "(kittyrc __complete commands 2>/dev/null)"
complete -c kittyrc -n 'set -l c (__kittyrc_command); test -n "$c"; and not contains -- $c serve mcp help completion' -a "(kittyrc __complete flags (__kittyrc_command) 2>/dev/null)"
`
