package rules

import (
	"path/filepath"
	"strings"
)

// Block is the rendered rules of one object directory
type Block struct {
	Group DirGroup
	Text  string
}

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}

func writeln(sb *strings.Builder, s ...string) {
	write(sb, s...)
	sb.WriteByte('\n')
}

func objectName(src, ext string) string {
	return strings.TrimSuffix(filepath.Base(src), ext) + ".o"
}

// RenderBlocks renders one block per group:
//
//	# $(OCCA_DIR)/src/modes/serial
//	occaObjects += \
//	  $(OCCA_DIR)/obj/modes/serial/device.o
//
//	$(OCCA_DIR)/obj/modes/serial/device.o: $(OCCA_DIR)/src/modes/serial/device.cpp
//		@mkdir -p $(OCCA_DIR)/obj/modes/serial
//		$(compiler) $(compilerFlags) -o $@ $(flags) -c $<
func RenderBlocks(lang Language, groups []DirGroup, g Generalizer) []Block {
	blocks := make([]Block, 0, len(groups))
	for _, grp := range groups {
		if len(grp.Files) == 0 {
			continue
		}
		blocks = append(blocks, Block{Group: grp, Text: renderBlock(lang, grp, g)})
	}
	return blocks
}

func renderBlock(lang Language, grp DirGroup, g Generalizer) string {
	var sb strings.Builder

	objDir := g.Path(grp.ObjDir)
	objects := make([]string, len(grp.Files))
	for i, src := range grp.Files {
		objects[i] = objDir + "/" + objectName(src, lang.Ext)
	}

	writeln(&sb, "# ", g.Path(grp.SrcDir))
	if lang.ObjectsVar != "" {
		write(&sb, lang.ObjectsVar, " +=")
		for _, obj := range objects {
			write(&sb, " \\\n  ", obj)
		}
		writeln(&sb)
	}

	for i, src := range grp.Files {
		writeln(&sb)
		writeln(&sb, objects[i], ": ", g.Path(src))
		writeln(&sb, "\t@mkdir -p ", objDir)
		writeln(&sb, "\t", lang.Compile)
	}

	return sb.String()
}

// JoinBlocks joins the blocks of one language with a newline between them
func JoinBlocks(blocks []Block) string {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return strings.Join(texts, "\n")
}
